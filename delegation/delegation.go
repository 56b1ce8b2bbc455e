// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation drives validator nodes through their activation
// lifecycle while keeping the pooled funds that back them consistent.
//
// Every command validates its whole batch first, applies the pending
// transition to nodes and funds, and returns the request to send to the
// auction authority. The authority's answer is applied later by Resolve.
// A Delegation is not safe for concurrent use, callers serialize access.
package delegation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/delegation/settings"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/metrics"
	"github.com/vechain/delegator/thor"
)

var (
	logger = log.WithContext("pkg", "delegation")

	metricCommandsCount = metrics.LazyLoadCounterVec("delegation_commands_count", []string{"command", "outcome"})
	metricPending       = metrics.LazyLoadGauge("delegation_pending_requests")
	metricPoolAmount    = metrics.LazyLoadGaugeVec("fund_pool_amount", []string{"type"})
)

var (
	// ErrUnknownRequest is returned when a response names no outstanding request,
	// including one that was already resolved.
	ErrUnknownRequest = errors.New("unknown or already resolved request")
	// ErrProtocolViolation reports a response or node state that contradicts
	// the outstanding request.
	ErrProtocolViolation = errors.New("protocol violation")
)

const msgGlobalOp = "node operations are temporarily paused as checkpoint is reset"

// Registry stores node identities and lifecycle states.
type Registry interface {
	NumNodes() (uint64, error)
	Add(key thor.BLSKey, sig thor.BLSSignature) (uint64, error)
	ResolveID(key thor.BLSKey) (uint64, error)
	State(id uint64) (node.State, error)
	SetState(id uint64, st node.State) error
	Key(id uint64) (thor.BLSKey, error)
	Signature(id uint64) (thor.BLSSignature, error)
	Node(id uint64) (*node.Node, error)
}

// Settings answers configuration lookups.
type Settings interface {
	OwnerID() uint64
	StakePerNode() *big.Int
	CallerClass(caller uint64) settings.CallerClass
	IsBootstrapMode() (bool, error)
	SetBootstrapMode(on bool) error
	IsAutoActivation() (bool, error)
	SetAutoActivation(on bool) error
	NBlocksBeforeForceUnstake() uint64
	NBlocksBeforeUnbond() uint64
	NBlocksBeforeClaim() uint64
	OwnerMinStakeShare() uint64
	HoldFailedActivation() bool
}

// Rewards distributes rewards and guards checkpoint resets.
type Rewards interface {
	AddRewards(amount *big.Int) error
	ComputeAll() error
	Unclaimed(owner uint64) (*big.Int, error)
	Claim(owner uint64) (*big.Int, error)
	StartGlobalOp() error
	FinishGlobalOp() error
	IsGlobalOpInProgress() (bool, error)
}

// BlockSource reports the current block number.
type BlockSource interface {
	BlockNumber() uint64
}

type Params struct {
	Registry Registry
	Funds    *fund.Engine
	Settings Settings
	Rewards  Rewards
	Events   events.Sink
	Blocks   BlockSource
}

type Delegation struct {
	registry Registry
	funds    *fund.Engine
	settings Settings
	rewards  Rewards
	events   events.Sink
	blocks   BlockSource
	pending  *pendingStore
}

// New creates the state machine. Pending request tokens are kept in store.
func New(store kv.Store, p Params) *Delegation {
	return &Delegation{
		registry: p.Registry,
		funds:    p.Funds,
		settings: p.Settings,
		rewards:  p.Rewards,
		events:   p.Events,
		blocks:   p.Blocks,
		pending:  newPendingStore(store),
	}
}

func (d *Delegation) current() uint64 {
	return d.blocks.BlockNumber()
}

// nodesAmount is the stake backing n nodes.
func (d *Delegation) nodesAmount(n int) *big.Int {
	return new(big.Int).Mul(d.settings.StakePerNode(), big.NewInt(int64(n)))
}

func (d *Delegation) requireOwner(caller uint64, msg string) error {
	if d.settings.CallerClass(caller) != settings.Owner {
		return reverts.NewUnauthorized(msg)
	}
	return nil
}

func (d *Delegation) requireNoGlobalOp() error {
	running, err := d.rewards.IsGlobalOpInProgress()
	if err != nil {
		return err
	}
	if running {
		return reverts.New(msgGlobalOp)
	}
	return nil
}

func (d *Delegation) requireNotBootstrap() error {
	on, err := d.settings.IsBootstrapMode()
	if err != nil {
		return err
	}
	if on {
		return reverts.New("cannot stake nodes in bootstrap mode")
	}
	return nil
}

// resolveNodes maps keys to node ids, rejecting unknown and duplicate keys and
// any node check refuses. Nothing is mutated.
func (d *Delegation) resolveNodes(keys []thor.BLSKey, check func(id uint64, st node.State) error) ([]uint64, []node.State, error) {
	if len(keys) == 0 {
		return nil, nil, reverts.New("no BLS keys provided")
	}
	ids := make([]uint64, 0, len(keys))
	states := make([]node.State, 0, len(keys))
	seen := make(map[uint64]struct{}, len(keys))
	for _, key := range keys {
		id, err := d.registry.ResolveID(key)
		if err != nil {
			return nil, nil, err
		}
		if id == 0 {
			return nil, nil, reverts.New("unknown node provided")
		}
		if _, dup := seen[id]; dup {
			return nil, nil, reverts.New("duplicate node provided")
		}
		seen[id] = struct{}{}

		st, err := d.registry.State(id)
		if err != nil {
			return nil, nil, err
		}
		if err := check(id, st); err != nil {
			return nil, nil, err
		}
		ids = append(ids, id)
		states = append(states, st)
	}
	return ids, states, nil
}

func requireStatus(status node.Status, msg string) func(uint64, node.State) error {
	return func(_ uint64, st node.State) error {
		if st.Status != status {
			return reverts.New(msg)
		}
		return nil
	}
}

func (d *Delegation) setStates(ids []uint64, st func(i int) node.State) error {
	for i, id := range ids {
		if err := d.registry.SetState(id, st(i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Delegation) keysOf(ids []uint64) ([]thor.BLSKey, error) {
	keys := make([]thor.BLSKey, 0, len(ids))
	for _, id := range ids {
		key, err := d.registry.Key(id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// validateOwnerStakeShare checks the owner keeps at least the configured
// share, in basis points, of all pooled funds.
func (d *Delegation) validateOwnerStakeShare() error {
	share := d.settings.OwnerMinStakeShare()
	if share == 0 {
		return nil
	}
	ledger := d.funds.Ledger()
	owned, err := ledger.Summary(d.settings.OwnerID())
	if err != nil {
		return err
	}
	ownerTotal, poolTotal := new(big.Int), new(big.Int)
	for _, t := range fund.Types {
		total, err := ledger.Total(t)
		if err != nil {
			return err
		}
		poolTotal.Add(poolTotal, total)
		if v, ok := owned[t]; ok {
			ownerTotal.Add(ownerTotal, v)
		}
	}
	lhs := ownerTotal.Mul(ownerTotal, big.NewInt(10_000))
	rhs := poolTotal.Mul(poolTotal, new(big.Int).SetUint64(share))
	if lhs.Cmp(rhs) < 0 {
		return reverts.New("owner stake share too low")
	}
	return nil
}

// track records a command outcome.
func track(command string, req *auction.Request, err error) {
	outcome := "ok"
	switch {
	case err != nil && reverts.IsRevertErr(err):
		outcome = "reverted"
	case err != nil:
		outcome = "error"
	case req == nil:
		outcome = "noop"
	}
	metricCommandsCount().AddWithLabel(1, map[string]string{"command": command, "outcome": outcome})
}

var wholeToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// reportPool publishes pool totals per fund type, in whole tokens.
func (d *Delegation) reportPool() {
	ledger := d.funds.Ledger()
	for _, t := range fund.Types {
		total, err := ledger.Total(t)
		if err != nil {
			logger.Warn("failed to read pool total", "type", t, "err", err)
			return
		}
		metricPoolAmount().SetWithLabel(total.Div(total, wholeToken).Int64(), map[string]string{"type": t.String()})
	}
}
