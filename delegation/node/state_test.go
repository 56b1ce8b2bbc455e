// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusText(t *testing.T) {
	for s := Inactive; s <= ActivationFailed; s++ {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStatus("sleeping")
	assert.Error(t, err)

	data, err := json.Marshal(struct{ S Status }{UnBondPeriod})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":"unbond_period"}`, string(data))

	_, err = Status(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestStatePending(t *testing.T) {
	assert.True(t, PendingActivation.IsPending())
	assert.True(t, PendingUnBond.IsPending())
	assert.False(t, UnBondPeriod.IsPending())
	assert.False(t, ActivationFailed.IsPending())

	assert.Equal(t, "pending_unbond{started: 7}", PendingUnBondFrom(7).String())
	assert.Equal(t, "active", StateOf(Active).String())
}
