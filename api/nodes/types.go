// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nodes

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/thor"
)

type Node struct {
	ID        uint64            `json:"id"`
	Key       thor.BLSKey       `json:"key"`
	Signature thor.BLSSignature `json:"signature"`
	Status    node.Status       `json:"status"`
	Started   *uint64           `json:"unbondStarted,omitempty"`
}

func convertNode(n *node.Node) *Node {
	out := &Node{
		ID:        n.ID,
		Key:       n.Key,
		Signature: n.Signature,
		Status:    n.State.Status,
	}
	if n.State.Status == node.UnBondPeriod || n.State.Status == node.PendingUnBond {
		started := n.State.Started
		out.Started = &started
	}
	return out
}

type NewNode struct {
	Key       thor.BLSKey       `json:"key"`
	Signature thor.BLSSignature `json:"signature"`
}

type AddNodes struct {
	Nodes []NewNode `json:"nodes"`
}

type AddNodesResult struct {
	IDs []uint64 `json:"ids"`
}

type Keys struct {
	Keys []thor.BLSKey `json:"keys"`
}

type Stake struct {
	Keys   []thor.BLSKey         `json:"keys"`
	Amount *math.HexOrDecimal256 `json:"amount,omitempty"`
}

type Unjail struct {
	Keys []thor.BLSKey         `json:"keys"`
	Fine *math.HexOrDecimal256 `json:"fine"`
}

// CommandResult is the answer to a command. A null request means no node was eligible.
type CommandResult struct {
	Request *auction.Request `json:"request"`
}
