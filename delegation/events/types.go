// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

// Kind names the outcome an event reports.
type Kind string

const (
	ActivationOK     Kind = "activation_ok"
	ActivationFail   Kind = "activation_fail"
	DeactivationOK   Kind = "deactivation_ok"
	DeactivationFail Kind = "deactivation_fail"
	UnbondOK         Kind = "unbond_ok"
	UnbondFail       Kind = "unbond_fail"
	ClaimOK          Kind = "claim_ok"
	ClaimFail        Kind = "claim_fail"
	ClaimUnusedOK    Kind = "claim_unused_ok"
	ClaimUnusedFail  Kind = "claim_unused_fail"
	UnjailOK         Kind = "unjail_ok"
	UnjailFail       Kind = "unjail_fail"
)

// Event is an observable record of a resolved authority request.
type Event struct {
	Seq       uint64   `json:"seq"`
	Kind      Kind     `json:"kind"`
	RequestID string   `json:"requestID"`
	NodeIDs   []uint64 `json:"nodeIDs"`
	Message   string   `json:"message,omitempty"`
	Block     uint64   `json:"block"`
}

// Sink receives events. Emitting never fails the caller.
type Sink interface {
	Emit(ev *Event)
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects stored events. Zero fields match everything.
type Filter struct {
	Kinds     []Kind
	RequestID string
	Range     *Range
	Order     Order
	Options   *Options
}
