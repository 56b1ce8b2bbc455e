// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"fmt"
	"math/big"
)

// PoolOwner is the reserved owner id naming the pool-wide aggregate.
// Real user ids start at 1.
const PoolOwner uint64 = 0

// Type is the accounting phase a bucket of stake is in.
type Type uint8

const (
	Waiting Type = iota + 1
	PendingActivation
	Active
	ActivationFailed
	PendingDeactivation
	UnStaked
	PendingUnBond
	DeferredPayment
	WithdrawOnly
)

// Types lists every fund type in declaration order.
var Types = []Type{
	Waiting,
	PendingActivation,
	Active,
	ActivationFailed,
	PendingDeactivation,
	UnStaked,
	PendingUnBond,
	DeferredPayment,
	WithdrawOnly,
}

var typeNames = map[Type]string{
	Waiting:             "waiting",
	PendingActivation:   "pending_activation",
	Active:              "active",
	ActivationFailed:    "activation_failed",
	PendingDeactivation: "pending_deactivation",
	UnStaked:            "unstaked",
	PendingUnBond:       "pending_unbond",
	DeferredPayment:     "deferred_payment",
	WithdrawOnly:        "withdraw_only",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Tagged reports whether buckets of this type carry a creation block.
func (t Type) Tagged() bool {
	switch t {
	case PendingDeactivation, UnStaked, PendingUnBond, DeferredPayment:
		return true
	}
	return false
}

// Description identifies a bucket within an owner's funds.
type Description struct {
	Type    Type
	Created uint64 // block the funds entered a time-gated type, zero for untagged types
}

// Describe builds an untagged description.
func Describe(t Type) Description {
	return Description{Type: t}
}

// DescribeAt builds a description tagged with the given block.
func DescribeAt(t Type, created uint64) Description {
	return Description{Type: t, Created: created}
}

func (d Description) normalized() Description {
	if !d.Type.Tagged() {
		d.Created = 0
	}
	return d
}

func (d Description) String() string {
	if d.Type.Tagged() {
		return fmt.Sprintf("%v@%d", d.Type, d.Created)
	}
	return d.Type.String()
}

// Bucket is an amount held by one owner under one description.
type Bucket struct {
	Owner  uint64
	Desc   Description
	Amount *big.Int
}

// PeriodElapsed reports whether more than delay blocks have passed since start.
func PeriodElapsed(current, start, delay uint64) bool {
	return current > start && current-start > delay
}
