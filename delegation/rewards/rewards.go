// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rewards distributes pool rewards to the owners of active stake.
package rewards

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var logger = log.WithContext("pkg", "rewards")

var (
	slotUndistributed = thor.BytesToBytes32([]byte("undistributed"))
	slotUnclaimed     = thor.BytesToBytes32([]byte("unclaimed"))
	slotGlobalOp      = thor.BytesToBytes32([]byte("global-op"))
)

// Service keeps track of undistributed and per user unclaimed rewards.
type Service struct {
	ledger        *fund.Ledger
	undistributed *storage.Uint256
	unclaimed     *storage.Mapping[storage.Uint64Key, *big.Int]
	globalOp      *storage.Var[bool]
}

func New(store kv.Store, ledger *fund.Ledger) *Service {
	sctx := storage.NewContext(store)
	return &Service{
		ledger:        ledger,
		undistributed: storage.NewUint256(sctx, slotUndistributed),
		unclaimed:     storage.NewMapping[storage.Uint64Key, *big.Int](sctx, slotUnclaimed),
		globalOp:      storage.NewVar[bool](sctx, slotGlobalOp),
	}
}

// AddRewards adds amount to the rewards awaiting distribution.
func (s *Service) AddRewards(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New("reward amount must be positive")
	}
	return s.undistributed.Add(amount)
}

// Undistributed returns the rewards not yet credited to any user.
func (s *Service) Undistributed() (*big.Int, error) {
	return s.undistributed.Get()
}

// ComputeAll credits undistributed rewards to owners in proportion to their
// Active stake. Rounding remainders stay undistributed.
func (s *Service) ComputeAll() error {
	pending, err := s.undistributed.Get()
	if err != nil {
		return err
	}
	if pending.Sign() == 0 {
		return nil
	}
	total, err := s.ledger.Total(fund.Active)
	if err != nil {
		return err
	}
	if total.Sign() == 0 {
		return nil
	}
	buckets, err := s.ledger.Buckets(fund.Active, fund.PoolOwner)
	if err != nil {
		return err
	}

	stakes := make(map[uint64]*big.Int)
	var owners []uint64
	for _, b := range buckets {
		if stake, ok := stakes[b.Owner]; ok {
			stake.Add(stake, b.Amount)
			continue
		}
		stakes[b.Owner] = new(big.Int).Set(b.Amount)
		owners = append(owners, b.Owner)
	}

	distributed := new(big.Int)
	for _, owner := range owners {
		share := new(big.Int).Mul(pending, stakes[owner])
		share.Div(share, total)
		if share.Sign() == 0 {
			continue
		}
		if err := s.credit(owner, share); err != nil {
			return err
		}
		distributed.Add(distributed, share)
	}
	if distributed.Sign() == 0 {
		return nil
	}
	logger.Debug("rewards distributed", "amount", distributed, "owners", len(owners))
	return s.undistributed.Sub(distributed)
}

func (s *Service) credit(owner uint64, amount *big.Int) error {
	current, err := s.Unclaimed(owner)
	if err != nil {
		return err
	}
	return s.unclaimed.Set(storage.Uint64Key(owner), current.Add(current, amount))
}

// Unclaimed returns the rewards credited to owner and not yet claimed.
func (s *Service) Unclaimed(owner uint64) (*big.Int, error) {
	v, err := s.unclaimed.Get(storage.Uint64Key(owner))
	if err != nil {
		return nil, errors.Wrap(err, "load unclaimed rewards")
	}
	if v == nil {
		return new(big.Int), nil
	}
	return v, nil
}

// Claim pays out and clears the owner's unclaimed rewards.
func (s *Service) Claim(owner uint64) (*big.Int, error) {
	amount, err := s.Unclaimed(owner)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return amount, nil
	}
	if err := s.unclaimed.Delete(storage.Uint64Key(owner)); err != nil {
		return nil, err
	}
	return amount, nil
}

// StartGlobalOp marks a checkpoint reset as in progress. Node operations are
// rejected until FinishGlobalOp.
func (s *Service) StartGlobalOp() error {
	running, err := s.IsGlobalOpInProgress()
	if err != nil {
		return err
	}
	if running {
		return reverts.New("checkpoint reset already in progress")
	}
	return s.globalOp.Set(true)
}

// FinishGlobalOp ends the checkpoint reset and distributes what accumulated meanwhile.
func (s *Service) FinishGlobalOp() error {
	running, err := s.IsGlobalOpInProgress()
	if err != nil {
		return err
	}
	if !running {
		return reverts.New("no checkpoint reset in progress")
	}
	if err := s.globalOp.Set(false); err != nil {
		return err
	}
	return s.ComputeAll()
}

func (s *Service) IsGlobalOpInProgress() (bool, error) {
	v, _, err := s.globalOp.Get()
	return v, err
}
