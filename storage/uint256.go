// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/thor"
)

var (
	errOverflow  = errors.New("uint256 overflow")
	errUnderflow = errors.New("uint256 underflow")
)

// Uint256 is an unsigned 256 bit counter persisted as 32 big endian bytes.
type Uint256 struct {
	context *Context
	pos     thor.Bytes32
}

func NewUint256(context *Context, slot thor.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: slot}
}

func (u *Uint256) load() (*uint256.Int, error) {
	raw, err := u.context.get(u.pos)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func (u *Uint256) store(v *uint256.Int) error {
	if v.IsZero() {
		return u.context.put(u.pos, nil)
	}
	b32 := v.Bytes32()
	return u.context.put(u.pos, b32[:])
}

func (u *Uint256) Get() (*big.Int, error) {
	v, err := u.load()
	if err != nil {
		return nil, err
	}
	return v.ToBig(), nil
}

func (u *Uint256) Set(value *big.Int) error {
	if value.Sign() < 0 {
		return errUnderflow
	}
	v, overflow := uint256.FromBig(value)
	if overflow {
		return errOverflow
	}
	return u.store(v)
}

func (u *Uint256) Add(value *big.Int) error {
	if value.Sign() < 0 {
		return u.Sub(new(big.Int).Neg(value))
	}
	delta, overflow := uint256.FromBig(value)
	if overflow {
		return errOverflow
	}
	cur, err := u.load()
	if err != nil {
		return err
	}
	if _, overflow := cur.AddOverflow(cur, delta); overflow {
		return errOverflow
	}
	return u.store(cur)
}

func (u *Uint256) Sub(value *big.Int) error {
	if value.Sign() < 0 {
		return u.Add(new(big.Int).Neg(value))
	}
	delta, overflow := uint256.FromBig(value)
	if overflow {
		return errUnderflow
	}
	cur, err := u.load()
	if err != nil {
		return err
	}
	if _, underflow := cur.SubOverflow(cur, delta); underflow {
		return errUnderflow
	}
	return u.store(cur)
}
