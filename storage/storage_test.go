// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/lvldb"
	"github.com/vechain/delegator/thor"
)

type record struct {
	Name  string
	Count uint64
	Value *big.Int
}

func newTestContext(t *testing.T) *Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewContext(db)
}

func TestMappingStruct(t *testing.T) {
	ctx := newTestContext(t)
	m := NewMapping[Uint64Key, record](ctx, thor.BytesToBytes32([]byte("records")))

	v, err := m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, record{}, v)

	in := record{Name: "one", Count: 7, Value: big.NewInt(100)}
	require.NoError(t, m.Set(1, in))

	v, err = m.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "one", v.Name)
	assert.Equal(t, uint64(7), v.Count)
	assert.Equal(t, 0, v.Value.Cmp(big.NewInt(100)))

	has, err := m.Has(1)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, m.Delete(1))
	has, err = m.Has(1)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestMappingPointer(t *testing.T) {
	ctx := newTestContext(t)
	m := NewMapping[StringKey, *record](ctx, thor.BytesToBytes32([]byte("ptr")))

	v, err := m.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, m.Set("a", &record{Name: "a", Value: big.NewInt(0)}))
	v, err = m.Get("a")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "a", v.Name)
}

func TestMappingBasesIsolated(t *testing.T) {
	ctx := newTestContext(t)
	a := NewMapping[Uint64Key, uint64](ctx, thor.BytesToBytes32([]byte("a")))
	b := NewMapping[Uint64Key, uint64](ctx, thor.BytesToBytes32([]byte("b")))

	require.NoError(t, a.Set(1, 10))
	v, err := b.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)
}

func TestVar(t *testing.T) {
	ctx := newTestContext(t)
	v := NewVar[bool](ctx, thor.BytesToBytes32([]byte("flag")))

	_, ok, err := v.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, v.Set(true))
	val, ok, err := v.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, val)

	require.NoError(t, v.Set(false))
	val, ok, err = v.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, val)
}

func TestUint256(t *testing.T) {
	ctx := newTestContext(t)
	u := NewUint256(ctx, thor.BytesToBytes32([]byte("total")))

	v, err := u.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())

	require.NoError(t, u.Add(big.NewInt(100)))
	require.NoError(t, u.Sub(big.NewInt(30)))
	require.NoError(t, u.Add(big.NewInt(-20)))
	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(50), v.Int64())

	assert.ErrorIs(t, u.Sub(big.NewInt(51)), errUnderflow)
	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(50), v.Int64(), "failed sub leaves value untouched")

	huge := new(big.Int).Lsh(big.NewInt(1), 256)
	assert.ErrorIs(t, u.Set(huge), errOverflow)

	require.NoError(t, u.Set(big.NewInt(0)))
	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())
}
