// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/thor"
)

func (d *Delegation) SetBootstrapMode(caller uint64, on bool) error {
	if err := d.requireOwner(caller, "only owner allowed to change bootstrap mode"); err != nil {
		return err
	}
	return d.settings.SetBootstrapMode(on)
}

func (d *Delegation) SetAutoActivation(caller uint64, on bool) error {
	if err := d.requireOwner(caller, "only owner allowed to change auto activation"); err != nil {
		return err
	}
	return d.settings.SetAutoActivation(on)
}

// StartCheckpointReset pauses node operations until FinishCheckpointReset.
func (d *Delegation) StartCheckpointReset(caller uint64) error {
	if err := d.requireOwner(caller, "only owner allowed to reset checkpoint"); err != nil {
		return err
	}
	return d.rewards.StartGlobalOp()
}

func (d *Delegation) FinishCheckpointReset(caller uint64) error {
	if err := d.requireOwner(caller, "only owner allowed to reset checkpoint"); err != nil {
		return err
	}
	return d.rewards.FinishGlobalOp()
}

// AddNodes registers nodes as Inactive. The whole batch is rejected if any
// key is zero or already known.
func (d *Delegation) AddNodes(caller uint64, keys []thor.BLSKey, sigs []thor.BLSSignature) ([]uint64, error) {
	if err := d.requireOwner(caller, "only owner allowed to add nodes"); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, reverts.New("no BLS keys provided")
	}
	if len(keys) != len(sigs) {
		return nil, reverts.New("keys and signatures length mismatch")
	}
	seen := make(map[thor.BLSKey]struct{}, len(keys))
	for _, key := range keys {
		if key.IsZero() {
			return nil, reverts.New("no BLS keys provided")
		}
		if _, dup := seen[key]; dup {
			return nil, reverts.New("duplicate BLS key")
		}
		seen[key] = struct{}{}
		id, err := d.registry.ResolveID(key)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return nil, reverts.New("duplicate BLS key")
		}
	}

	ids := make([]uint64, 0, len(keys))
	for i, key := range keys {
		id, err := d.registry.Add(key, sigs[i])
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	logger.Info("nodes added", "nodes", ids)
	return ids, nil
}

// Deposit records a user's stake as Waiting.
func (d *Delegation) Deposit(user uint64, amount *big.Int) error {
	if user == fund.PoolOwner {
		return reverts.New("user id 0 is reserved")
	}
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New("deposit amount must be positive")
	}
	if err := d.funds.CreateWaiting(user, amount); err != nil {
		return err
	}
	d.reportPool()
	logger.Debug("deposit", "user", user, "amount", amount)
	return nil
}

// Withdraw pays out a user's inactive stake.
func (d *Delegation) Withdraw(user uint64, amount *big.Int) error {
	if user == fund.PoolOwner {
		return reverts.New("user id 0 is reserved")
	}
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New("withdraw amount must be positive")
	}
	if err := d.funds.LiquidateFreeStake(user, amount); err != nil {
		return err
	}
	d.reportPool()
	logger.Debug("withdraw", "user", user, "amount", amount)
	return nil
}

// ClaimDeferredPayments makes the user's matured deferred payments withdrawable
// and returns the amount released.
func (d *Delegation) ClaimDeferredPayments(user uint64) (*big.Int, error) {
	if user == fund.PoolOwner {
		return nil, reverts.New("user id 0 is reserved")
	}
	amount, err := d.funds.ClaimAllEligibleDeferredPayments(user, d.current(), d.settings.NBlocksBeforeClaim())
	if err != nil {
		return nil, err
	}
	d.reportPool()
	return amount, nil
}

func (d *Delegation) AddRewards(amount *big.Int) error {
	return d.rewards.AddRewards(amount)
}

// ClaimRewards distributes pending rewards and pays out the user's share.
func (d *Delegation) ClaimRewards(user uint64) (*big.Int, error) {
	if err := d.rewards.ComputeAll(); err != nil {
		return nil, err
	}
	return d.rewards.Claim(user)
}

// Node returns the node registered under id.
func (d *Delegation) Node(id uint64) (*node.Node, error) {
	n, err := d.registry.NumNodes()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > n {
		return nil, reverts.New("unknown node provided")
	}
	return d.registry.Node(id)
}

// Nodes lists registered nodes in id order, optionally only those in status.
func (d *Delegation) Nodes(status *node.Status) ([]*node.Node, error) {
	n, err := d.registry.NumNodes()
	if err != nil {
		return nil, err
	}
	nodes := make([]*node.Node, 0, n)
	for id := uint64(1); id <= n; id++ {
		nd, err := d.registry.Node(id)
		if err != nil {
			return nil, err
		}
		if status != nil && nd.State.Status != *status {
			continue
		}
		nodes = append(nodes, nd)
	}
	return nodes, nil
}

// Funds is a user's position in the pool.
type Funds struct {
	Balances          map[fund.Type]*big.Int
	ClaimableDeferred *big.Int
	UnclaimedRewards  *big.Int
}

// Funds reports the user's amounts per fund type. PoolOwner yields the pool totals.
func (d *Delegation) Funds(user uint64) (*Funds, error) {
	balances, err := d.funds.Ledger().Summary(user)
	if err != nil {
		return nil, err
	}
	f := &Funds{Balances: balances}
	if user == fund.PoolOwner {
		return f, nil
	}
	if f.ClaimableDeferred, err = d.funds.EligibleDeferredPayment(user, d.current(), d.settings.NBlocksBeforeClaim()); err != nil {
		return nil, err
	}
	if f.UnclaimedRewards, err = d.rewards.Unclaimed(user); err != nil {
		return nil, err
	}
	return f, nil
}

// PendingRequests returns the number of outstanding authority requests.
func (d *Delegation) PendingRequests() (uint64, error) {
	n, err := d.pending.size()
	return n, errors.Wrap(err, "failed to count pending requests")
}
