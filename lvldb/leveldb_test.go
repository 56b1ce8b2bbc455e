// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/kv"
)

func TestLevelDB(t *testing.T) {
	dir := t.TempDir()
	db, err := New(dir, Options{})
	require.NoError(t, err)

	_, err = db.Get([]byte("missing"))
	assert.True(t, db.IsNotFound(err))

	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Put([]byte("gone"), []byte("v")))
	require.NoError(t, db.Delete([]byte("gone")))
	require.NoError(t, db.Close())

	// reopen to check the writes were persisted
	db, err = New(dir, Options{CacheSize: 32, OpenFilesCacheCapacity: 64})
	require.NoError(t, err)
	defer db.Close()

	v, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	_, err = db.Get([]byte("gone"))
	assert.True(t, db.IsNotFound(err))
}

func TestIterate(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	for _, k := range []string{"a1", "a2", "b1", "a3"} {
		require.NoError(t, db.Put([]byte(k), []byte(k)))
	}
	require.NoError(t, db.Delete([]byte("a2")))

	iter := db.Iterate(kv.PrefixRange([]byte("a")))
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
		assert.Equal(t, iter.Key(), iter.Value())
	}
	require.NoError(t, iter.Error())
	assert.Equal(t, []string{"a1", "a3"}, keys)
}

func TestBucket(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	nodes := kv.Bucket("n").NewStore(db)
	funds := kv.Bucket("f").NewStore(db)

	require.NoError(t, nodes.Put([]byte("1"), []byte("node")))
	require.NoError(t, funds.Put([]byte("1"), []byte("fund")))

	raw, err := db.Get([]byte("f1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fund"), raw)

	_, err = nodes.Get([]byte("2"))
	assert.True(t, nodes.IsNotFound(err))

	iter := nodes.Iterate(kv.Range{})
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	assert.Equal(t, []string{"1"}, keys)
}
