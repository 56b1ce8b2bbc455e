// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	_, err := NewLRU[uint64, string](0)
	assert.Error(t, err)

	c, err := NewLRU[uint64, string](2)
	require.NoError(t, err)

	c.Add(1, "a")
	c.Add(2, "b")
	c.Add(3, "c")
	_, ok := c.Get(1)
	assert.False(t, ok, "oldest entry evicted")
	assert.Equal(t, 2, c.Len())

	loads := 0
	load := func(k uint64) (string, error) {
		loads++
		if k == 9 {
			return "", errors.New("boom")
		}
		return "loaded", nil
	}
	v, err := c.GetOrLoad(4, load)
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	_, err = c.GetOrLoad(4, load)
	require.NoError(t, err)
	assert.Equal(t, 1, loads)

	_, err = c.GetOrLoad(9, load)
	assert.EqualError(t, err, "boom")
	_, ok = c.Get(9)
	assert.False(t, ok)

	c.Remove(4)
	_, ok = c.Get(4)
	assert.False(t, ok)
}
