// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/delegation/settings"
	"github.com/vechain/delegator/thor"
)

// StakeNodes activates the given Inactive nodes using pooled Waiting funds.
// A non-zero amount must equal the nodes' requirement.
func (d *Delegation) StakeNodes(caller uint64, keys []thor.BLSKey, amount *big.Int) (req *auction.Request, err error) {
	defer func() { track("stake", req, err) }()

	if err := d.requireOwner(caller, "only owner allowed to stake nodes"); err != nil {
		return nil, err
	}
	if err := d.requireNotBootstrap(); err != nil {
		return nil, err
	}
	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, reverts.New("no BLS keys provided")
	}

	required := d.nodesAmount(len(keys))
	if amount == nil || amount.Sign() == 0 {
		amount = required
	} else if amount.Cmp(required) != 0 {
		return nil, reverts.New("stake amount must match nodes requirement")
	}
	waiting, err := d.funds.Ledger().Total(fund.Waiting)
	if err != nil {
		return nil, err
	}
	if waiting.Cmp(amount) < 0 {
		return nil, reverts.New("not enough funds in contract to stake nodes")
	}
	if err := d.validateOwnerStakeShare(); err != nil {
		return nil, err
	}

	ids, _, err := d.resolveNodes(keys, requireStatus(node.Inactive, "node must be inactive"))
	if err != nil {
		return nil, err
	}
	return d.beginStake(caller, ids, keys, amount)
}

// StakeAllAvailable activates Inactive nodes in ascending id order for as
// long as Waiting funds cover one more node.
func (d *Delegation) StakeAllAvailable(caller uint64) (req *auction.Request, err error) {
	defer func() { track("stake_all", req, err) }()

	if d.settings.CallerClass(caller) == settings.Unauthorized {
		auto, err := d.settings.IsAutoActivation()
		if err != nil {
			return nil, err
		}
		if !auto {
			return nil, reverts.NewUnauthorized("not allowed to activate")
		}
	}
	if err := d.requireNotBootstrap(); err != nil {
		return nil, err
	}
	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}

	if err := d.validateOwnerStakeShare(); err != nil {
		return nil, err
	}

	spn := d.settings.StakePerNode()
	remaining, err := d.funds.Ledger().Total(fund.Waiting)
	if err != nil {
		return nil, err
	}
	n, err := d.registry.NumNodes()
	if err != nil {
		return nil, err
	}

	var ids []uint64
	for id := uint64(1); id <= n && remaining.Cmp(spn) >= 0; id++ {
		st, err := d.registry.State(id)
		if err != nil {
			return nil, err
		}
		if st.Status != node.Inactive {
			continue
		}
		ids = append(ids, id)
		remaining.Sub(remaining, spn)
	}
	if len(ids) == 0 {
		logger.Debug("no nodes available to stake")
		return nil, nil
	}
	keys, err := d.keysOf(ids)
	if err != nil {
		return nil, err
	}
	return d.beginStake(caller, ids, keys, d.nodesAmount(len(ids)))
}

func (d *Delegation) beginStake(caller uint64, ids []uint64, keys []thor.BLSKey, amount *big.Int) (*auction.Request, error) {
	sigs := make([]thor.BLSSignature, 0, len(ids))
	for _, id := range ids {
		sig, err := d.registry.Signature(id)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}

	logger.Debug("staking nodes", "nodes", ids, "amount", amount)
	if _, err := d.funds.ActivateStart(d.nodesAmount(len(ids))); err != nil {
		return nil, err
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(node.PendingActivation) }); err != nil {
		return nil, err
	}
	return d.open(&pendingCall{
		Kind:      auction.Stake,
		NodeIDs:   ids,
		Keys:      keys,
		Amount:    amount,
		Requester: caller,
	}, sigs)
}

// UnstakeNodes asks the authority to stop the given Active nodes.
func (d *Delegation) UnstakeNodes(caller uint64, keys []thor.BLSKey) (*auction.Request, error) {
	req, err := d.unstake(caller, keys, auction.UnStakeNodes)
	track("unstake", req, err)
	return req, err
}

// UnstakeNodesAndTokens stops the given Active nodes and withdraws their stake from the authority.
func (d *Delegation) UnstakeNodesAndTokens(caller uint64, keys []thor.BLSKey) (*auction.Request, error) {
	req, err := d.unstake(caller, keys, auction.UnStake)
	track("unstake_tokens", req, err)
	return req, err
}

func (d *Delegation) unstake(caller uint64, keys []thor.BLSKey, kind auction.Kind) (*auction.Request, error) {
	if err := d.requireOwner(caller, "only owner allowed to unstake nodes"); err != nil {
		return nil, err
	}
	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	ids, _, err := d.resolveNodes(keys, requireStatus(node.Active, "node not active"))
	if err != nil {
		return nil, err
	}

	if err := d.rewards.ComputeAll(); err != nil {
		return nil, err
	}
	current := d.current()
	logger.Debug("unstaking nodes", "nodes", ids, "kind", kind)
	if _, err := d.funds.UnstakeStart(d.nodesAmount(len(ids)), current); err != nil {
		return nil, err
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(node.PendingDeactivation) }); err != nil {
		return nil, err
	}
	return d.open(&pendingCall{
		Kind:      kind,
		NodeIDs:   ids,
		Keys:      keys,
		Requester: caller,
		Deadline:  current + d.settings.NBlocksBeforeForceUnstake(),
	}, nil)
}

func (d *Delegation) unbondEligible(current uint64) func(uint64, node.State) error {
	delay := d.settings.NBlocksBeforeUnbond()
	return func(_ uint64, st node.State) error {
		if st.Status != node.UnBondPeriod {
			return reverts.New("node not in unbond period")
		}
		if !fund.PeriodElapsed(current, st.Started, delay) {
			return reverts.New("too soon to unbond node")
		}
		return nil
	}
}

// UnbondNodes releases the stake of nodes whose unbond period has elapsed.
// Anyone may call it.
func (d *Delegation) UnbondNodes(caller uint64, keys []thor.BLSKey) (req *auction.Request, err error) {
	defer func() { track("unbond", req, err) }()

	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	current := d.current()
	ids, states, err := d.resolveNodes(keys, d.unbondEligible(current))
	if err != nil {
		return nil, err
	}
	return d.beginUnbond(caller, ids, keys, states, current)
}

// UnbondAllAvailable unbonds every eligible node, scanning from the highest id.
func (d *Delegation) UnbondAllAvailable(caller uint64) (req *auction.Request, err error) {
	defer func() { track("unbond_all", req, err) }()

	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	n, err := d.registry.NumNodes()
	if err != nil {
		return nil, err
	}
	current := d.current()
	eligible := d.unbondEligible(current)

	var (
		ids    []uint64
		states []node.State
	)
	for id := n; id >= 1; id-- {
		st, err := d.registry.State(id)
		if err != nil {
			return nil, err
		}
		if eligible(id, st) != nil {
			continue
		}
		ids = append(ids, id)
		states = append(states, st)
	}
	if len(ids) == 0 {
		logger.Debug("no nodes available to unbond")
		return nil, nil
	}
	keys, err := d.keysOf(ids)
	if err != nil {
		return nil, err
	}
	return d.beginUnbond(caller, ids, keys, states, current)
}

func (d *Delegation) beginUnbond(caller uint64, ids []uint64, keys []thor.BLSKey, states []node.State, current uint64) (*auction.Request, error) {
	logger.Debug("unbonding nodes", "nodes", ids)
	// the ledger move checks the unstaked funds before any node changes
	if _, err := d.funds.UnbondStart(d.nodesAmount(len(ids)), current, d.settings.NBlocksBeforeUnbond()); err != nil {
		return nil, err
	}
	started := make([]uint64, len(states))
	for i, st := range states {
		started[i] = st.Started
	}
	if err := d.setStates(ids, func(i int) node.State { return node.PendingUnBondFrom(started[i]) }); err != nil {
		return nil, err
	}
	return d.open(&pendingCall{
		Kind:      auction.UnBond,
		NodeIDs:   ids,
		Keys:      keys,
		Started:   started,
		Requester: caller,
	}, nil)
}

// ClaimUnusedFunds asks the authority to return funds it holds but does not use.
func (d *Delegation) ClaimUnusedFunds(caller uint64) (req *auction.Request, err error) {
	defer func() { track("claim_unused", req, err) }()

	if err := d.requireOwner(caller, "only owner can claim inactive stake from auction"); err != nil {
		return nil, err
	}
	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	return d.open(&pendingCall{Kind: auction.ClaimUnused, Requester: caller}, nil)
}

// ClaimFailedStake recovers the stake of every ActivationFailed node.
func (d *Delegation) ClaimFailedStake(caller uint64) (req *auction.Request, err error) {
	defer func() { track("claim_failed", req, err) }()

	if err := d.requireOwner(caller, "only owner allowed to claim failed stake"); err != nil {
		return nil, err
	}
	if err := d.requireNoGlobalOp(); err != nil {
		return nil, err
	}
	busy, err := d.pending.claimInProgress()
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, reverts.New("claim already in progress")
	}

	n, err := d.registry.NumNodes()
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for id := n; id >= 1; id-- {
		st, err := d.registry.State(id)
		if err != nil {
			return nil, err
		}
		if st.Status == node.ActivationFailed {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		logger.Debug("no failed activations to claim")
		return nil, nil
	}
	keys, err := d.keysOf(ids)
	if err != nil {
		return nil, err
	}
	return d.open(&pendingCall{
		Kind:      auction.Claim,
		NodeIDs:   ids,
		Keys:      keys,
		Amount:    d.nodesAmount(len(ids)),
		Requester: caller,
	}, nil)
}

// UnjailNodes pays fine to have jailed Active nodes released.
func (d *Delegation) UnjailNodes(caller uint64, keys []thor.BLSKey, fine *big.Int) (req *auction.Request, err error) {
	defer func() { track("unjail", req, err) }()

	if err := d.requireOwner(caller, "only owner allowed to unjail nodes"); err != nil {
		return nil, err
	}
	if fine == nil || fine.Sign() <= 0 {
		return nil, reverts.New("fine payment required")
	}
	ids, _, err := d.resolveNodes(keys, requireStatus(node.Active, "node must be active"))
	if err != nil {
		return nil, err
	}
	return d.open(&pendingCall{
		Kind:      auction.UnJail,
		NodeIDs:   ids,
		Keys:      keys,
		Amount:    fine,
		Requester: caller,
	}, nil)
}

func (d *Delegation) open(call *pendingCall, sigs []thor.BLSSignature) (*auction.Request, error) {
	call.Block = d.current()
	if err := d.pending.open(call); err != nil {
		return nil, err
	}
	d.reportPool()
	logger.Info("request opened", "id", call.ID, "kind", call.Kind, "nodes", call.NodeIDs)
	return call.request(sigs), nil
}
