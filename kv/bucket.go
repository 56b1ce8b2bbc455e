// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket names a key namespace. Every component of the service keeps its state
// in its own bucket of the shared database.
type Bucket string

// NewStore returns a view of src confined to the bucket.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{prefix: []byte(b), src: src}
}

type bucketStore struct {
	prefix []byte
	src    Store
}

func (s *bucketStore) key(key []byte) []byte {
	k := make([]byte, 0, len(s.prefix)+len(key))
	return append(append(k, s.prefix...), key...)
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.key(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error      { return s.src.Put(s.key(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.key(key)) }

func (s *bucketStore) Iterate(r Range) Iterator {
	rng := PrefixRange(s.prefix)
	if len(r.Start) > 0 {
		rng.Start = s.key(r.Start)
	}
	if len(r.Limit) > 0 {
		rng.Limit = s.key(r.Limit)
	}
	return &bucketIterator{Iterator: s.src.Iterate(rng), strip: len(s.prefix)}
}

// bucketIterator strips the bucket prefix from the keys it yields.
type bucketIterator struct {
	Iterator
	strip int
}

func (it *bucketIterator) Key() []byte {
	return it.Iterator.Key()[it.strip:]
}
