// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage provides typed persistent slots over a kv.Store.
package storage

import (
	"github.com/pkg/errors"

	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/thor"
)

// Context binds typed slots to a kv store.
type Context struct {
	store kv.Store
}

func NewContext(store kv.Store) *Context {
	return &Context{store: store}
}

func (c *Context) Store() kv.Store {
	return c.store
}

// get returns the raw value at pos, or nil when absent.
func (c *Context) get(pos thor.Bytes32) ([]byte, error) {
	raw, err := c.store.Get(pos.Bytes())
	if err != nil {
		if c.store.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read slot %v", pos)
	}
	return raw, nil
}

// put writes raw at pos, deleting the slot when raw is empty.
func (c *Context) put(pos thor.Bytes32, raw []byte) error {
	if len(raw) == 0 {
		return errors.Wrapf(c.store.Delete(pos.Bytes()), "failed to clear slot %v", pos)
	}
	return errors.Wrapf(c.store.Put(pos.Bytes(), raw), "failed to write slot %v", pos)
}

// Key is implemented by mapping keys.
type Key interface {
	Bytes() []byte
}

// Uint64Key is a numeric mapping key, such as a node or user id.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	return []byte{
		byte(k >> 56), byte(k >> 48), byte(k >> 40), byte(k >> 32),
		byte(k >> 24), byte(k >> 16), byte(k >> 8), byte(k),
	}
}

// StringKey is a textual mapping key, such as a request id.
type StringKey string

func (k StringKey) Bytes() []byte {
	return []byte(k)
}
