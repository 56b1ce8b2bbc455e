// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/lvldb"
	"github.com/vechain/delegator/thor"
)

func newRegistry(t *testing.T) (*Registry, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRegistry(db), db
}

func testKey(i byte) thor.BLSKey {
	var k thor.BLSKey
	k[0], k[95] = 0xb1, i
	return k
}

func testSig(i byte) thor.BLSSignature {
	var s thor.BLSSignature
	s[0], s[47] = 0x51, i
	return s
}

func TestRegistryAdd(t *testing.T) {
	r, _ := newRegistry(t)

	for i := byte(1); i <= 3; i++ {
		id, err := r.Add(testKey(i), testSig(i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), id)
	}
	n, err := r.NumNodes()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)

	_, err = r.Add(testKey(2), testSig(9))
	assert.True(t, reverts.IsRevertErr(err))
	_, err = r.Add(thor.BLSKey{}, testSig(9))
	assert.EqualError(t, err, "no BLS keys provided")

	id, err := r.ResolveID(testKey(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), id)

	id, err = r.ResolveID(testKey(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id, "unknown key resolves to 0")

	key, err := r.Key(2)
	require.NoError(t, err)
	assert.Equal(t, testKey(2), key)
	sig, err := r.Signature(2)
	require.NoError(t, err)
	assert.Equal(t, testSig(2), sig)

	_, err = r.Key(4)
	assert.Error(t, err)
}

func TestRegistryState(t *testing.T) {
	r, db := newRegistry(t)
	id, err := r.Add(testKey(1), testSig(1))
	require.NoError(t, err)

	st, err := r.State(id)
	require.NoError(t, err)
	assert.Equal(t, StateOf(Inactive), st)

	require.NoError(t, r.SetState(id, PendingUnBondFrom(42)))
	st, err = r.State(id)
	require.NoError(t, err)
	assert.Equal(t, PendingUnBondFrom(42), st)
	assert.True(t, st.Status.IsPending())

	// marker is cleared for states without a start block
	require.NoError(t, r.SetState(id, State{Status: Inactive, Started: 42}))
	st, err = r.State(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), st.Started)

	// a fresh registry over the same store reads persisted state
	require.NoError(t, r.SetState(id, UnBondPeriodFrom(10)))
	reopened := NewRegistry(db)
	st, err = reopened.State(id)
	require.NoError(t, err)
	assert.Equal(t, UnBondPeriodFrom(10), st)

	n, err := reopened.Node(id)
	require.NoError(t, err)
	assert.Equal(t, testKey(1), n.Key)
	assert.Equal(t, "unbond_period{started: 10}", n.State.String())
}
