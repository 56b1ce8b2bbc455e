// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package auction defines the messages exchanged with the external auction
// authority that actually runs validator nodes.
package auction

import (
	"context"
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/thor"
)

// Kind is the operation a request asks the authority to perform.
type Kind uint8

const (
	Stake Kind = iota + 1
	UnStakeNodes
	UnStake
	UnBond
	Claim
	ClaimUnused
	UnJail
)

var kindNames = map[Kind]string{
	Stake:        "stake",
	UnStakeNodes: "unstake_nodes",
	UnStake:      "unstake",
	UnBond:       "unbond",
	Claim:        "claim",
	ClaimUnused:  "claim_unused",
	UnJail:       "unjail",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// PerNode reports whether the authority answers this kind with a status per node.
func (k Kind) PerNode() bool {
	switch k {
	case Stake, UnStakeNodes, UnStake, UnBond:
		return true
	}
	return false
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("invalid request kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown request kind %q", text)
}

// Request is one batched call to the authority. ID correlates the response.
type Request struct {
	ID         string              `json:"id"`
	Kind       Kind                `json:"kind"`
	NodeIDs    []uint64            `json:"nodeIDs,omitempty"`
	Keys       []thor.BLSKey       `json:"keys,omitempty"`
	Signatures []thor.BLSSignature `json:"signatures,omitempty"`
	Amount     *big.Int            `json:"amount,omitempty"`
	Block      uint64              `json:"block"`
}

// Status is the authority's verdict for one node. Code 0 means success.
type Status struct {
	Key     thor.BLSKey `json:"key"`
	Code    uint32      `json:"code"`
	Message string      `json:"message,omitempty"`
}

func (s *Status) OK() bool { return s.Code == 0 }

// Response is the authority's asynchronous answer to a request. A non-empty
// Error means the whole call failed.
type Response struct {
	RequestID string   `json:"requestID"`
	Statuses  []Status `json:"statuses,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func (r *Response) Failed() bool { return r.Error != "" }

// ErrRejected marks a submission the authority is known not to have
// accepted. Any other submit error leaves acceptance unknown.
var ErrRejected = errors.New("request rejected")

// Authority accepts requests. Responses arrive later through a separate channel.
type Authority interface {
	Submit(ctx context.Context, req *Request) error
}
