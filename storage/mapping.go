// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/thor"
)

// Mapping is a persistent key/value table of rlp encoded values.
// Entries live at blake2b(key, base), so distinct bases never collide.
type Mapping[K Key, V any] struct {
	context *Context
	basePos thor.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos thor.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) thor.Bytes32 {
	return thor.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value stored under key. A missing entry yields the zero
// value, or a nil pointer when V is a pointer type.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	raw, err := m.context.get(m.position(key))
	if err != nil || len(raw) == 0 {
		return value, err
	}
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, errors.Wrap(err, "failed to decode mapping value")
	}
	return value, nil
}

// Has reports whether key has a stored entry.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	raw, err := m.context.get(m.position(key))
	return len(raw) > 0, err
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode mapping value")
	}
	return m.context.put(m.position(key), raw)
}

func (m *Mapping[K, V]) Delete(key K) error {
	return m.context.put(m.position(key), nil)
}

// Var is a single rlp encoded value stored at a fixed slot.
type Var[V any] struct {
	context *Context
	pos     thor.Bytes32
}

func NewVar[V any](context *Context, pos thor.Bytes32) *Var[V] {
	return &Var[V]{context: context, pos: pos}
}

// Get returns the stored value and whether one was ever set.
func (v *Var[V]) Get() (value V, ok bool, err error) {
	raw, err := v.context.get(v.pos)
	if err != nil || len(raw) == 0 {
		return value, false, err
	}
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		return value, false, errors.Wrap(err, "failed to decode var")
	}
	return value, true, nil
}

func (v *Var[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode var")
	}
	return v.context.put(v.pos, raw)
}
