// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the ordered key-value surface the pool state is kept in.
package kv

import (
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store is an ordered key-value store.
type Store interface {
	// Get returns the value of key. A missing key yields an error for which
	// IsNotFound reports true.
	Get(key []byte) ([]byte, error)
	IsNotFound(err error) bool
	Put(key, val []byte) error
	Delete(key []byte) error
	// Iterate scans the keys in r in ascending order.
	Iterate(r Range) Iterator
}

// Iterator walks a key range. Key and Value are valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range is the half-open key range [Start, Limit). Empty bounds are unbounded.
type Range struct {
	Start []byte
	Limit []byte
}

// PrefixRange returns the range covering every key with the given prefix.
func PrefixRange(prefix []byte) Range {
	r := util.BytesPrefix(prefix)
	return Range{Start: r.Start, Limit: r.Limit}
}
