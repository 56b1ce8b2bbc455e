// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"bytes"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

// memStore is a sorted in-memory Store.
type memStore map[string][]byte

func (m memStore) Get(key []byte) ([]byte, error) {
	v, ok := m[string(key)]
	if !ok {
		return nil, errNotFound
	}
	return v, nil
}
func (m memStore) IsNotFound(err error) bool { return errors.Is(err, errNotFound) }
func (m memStore) Put(key, val []byte) error { m[string(key)] = val; return nil }
func (m memStore) Delete(key []byte) error   { delete(m, string(key)); return nil }

func (m memStore) Iterate(r Range) Iterator {
	var keys []string
	for k := range m {
		if len(r.Start) > 0 && bytes.Compare([]byte(k), r.Start) < 0 {
			continue
		}
		if len(r.Limit) > 0 && bytes.Compare([]byte(k), r.Limit) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memIterator{m: m, keys: keys, pos: -1}
}

type memIterator struct {
	m    memStore
	keys []string
	pos  int
}

func (it *memIterator) Next() bool    { it.pos++; return it.pos < len(it.keys) }
func (it *memIterator) Key() []byte   { return []byte(it.keys[it.pos]) }
func (it *memIterator) Value() []byte { return it.m[it.keys[it.pos]] }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }

func keysOf(it Iterator) []string {
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	return keys
}

func TestBucketIsolation(t *testing.T) {
	src := memStore{}
	nodes := Bucket("n").NewStore(src)
	funds := Bucket("f").NewStore(src)

	require.NoError(t, nodes.Put([]byte("1"), []byte("node")))
	require.NoError(t, funds.Put([]byte("1"), []byte("fund")))
	assert.Equal(t, []byte("fund"), src["f1"])

	v, err := nodes.Get([]byte("1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("node"), v)

	require.NoError(t, nodes.Delete([]byte("1")))
	_, err = nodes.Get([]byte("1"))
	assert.True(t, nodes.IsNotFound(err))

	v, err = funds.Get([]byte("1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fund"), v)
}

func TestBucketIterate(t *testing.T) {
	src := memStore{"a0": nil, "b1": nil, "ba1": nil, "ba2": nil, "bb1": nil, "c1": nil}
	b := Bucket("b").NewStore(src)

	assert.Equal(t, []string{"1", "a1", "a2", "b1"}, keysOf(b.Iterate(Range{})))
	assert.Equal(t, []string{"a1", "a2"}, keysOf(b.Iterate(PrefixRange([]byte("a")))))
	assert.Equal(t, []string{"a2", "b1"}, keysOf(b.Iterate(Range{Start: []byte("a2")})))
	assert.Equal(t, []string{"1", "a1"}, keysOf(b.Iterate(Range{Limit: []byte("a2")})))
}
