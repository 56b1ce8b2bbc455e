// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/thor"
)

func entry(i byte) nodeEntry {
	var e nodeEntry
	e.Key[0], e.Key[95] = 0xaa, i
	e.Signature[0], e.Signature[47] = 0xbb, i
	return e
}

func writeNodesFile(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func nodesYAML(t *testing.T, entries ...nodeEntry) string {
	var b strings.Builder
	b.WriteString("nodes:\n")
	for _, e := range entries {
		key, err := e.Key.MarshalText()
		require.NoError(t, err)
		sig, err := e.Signature.MarshalText()
		require.NoError(t, err)
		fmt.Fprintf(&b, "  - key: %s\n    signature: %s\n", key, sig)
	}
	return b.String()
}

func TestLoadNodesFile(t *testing.T) {
	entries, err := loadNodesFile(writeNodesFile(t, nodesYAML(t, entry(1), entry(2))))
	require.NoError(t, err)
	assert.Equal(t, []nodeEntry{entry(1), entry(2)}, entries)

	_, err = loadNodesFile(writeNodesFile(t, nodesYAML(t, entry(1), entry(1))))
	assert.ErrorContains(t, err, "duplicate key")

	_, err = loadNodesFile(writeNodesFile(t, "nodes:\n  - signature: 0x00\n"))
	assert.Error(t, err)

	_, err = loadNodesFile(writeNodesFile(t, "validators: []\n"))
	assert.Error(t, err)

	_, err = loadNodesFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fakeResolver map[thor.BLSKey]uint64

func (f fakeResolver) ResolveID(key thor.BLSKey) (uint64, error) { return f[key], nil }

func TestFilterNew(t *testing.T) {
	entries := []nodeEntry{entry(1), entry(2), entry(3)}
	out, skipped, err := filterNew(entries, fakeResolver{entry(2).Key: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []nodeEntry{entry(1), entry(3)}, out)
	assert.Len(t, entries, 3)
}

func TestImportNodes(t *testing.T) {
	var (
		batches [][]thor.BLSKey
		nextID  uint64
	)
	add := func(caller uint64, keys []thor.BLSKey, sigs []thor.BLSSignature) ([]uint64, error) {
		assert.Equal(t, uint64(1), caller)
		assert.Len(t, sigs, len(keys))
		batches = append(batches, keys)
		ids := make([]uint64, len(keys))
		for i := range keys {
			nextID++
			ids[i] = nextID
		}
		return ids, nil
	}

	entries := []nodeEntry{entry(1), entry(2), entry(3), entry(4), entry(5)}
	n, err := importNodes(entries, 2, 1, add, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, batches, 3)
	assert.Equal(t, []thor.BLSKey{entry(5).Key}, batches[2])

	_, err = importNodes(entries, 0, 1, add, nil)
	assert.Error(t, err)

	failing := func(uint64, []thor.BLSKey, []thor.BLSSignature) ([]uint64, error) {
		return nil, errors.New("duplicate BLS key")
	}
	n, err = importNodes(entries, 2, 1, failing, nil)
	assert.Equal(t, 0, n)
	assert.ErrorContains(t, err, "nodes[0:2]")
}
