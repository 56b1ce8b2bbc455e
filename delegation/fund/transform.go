// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"math/big"
	"slices"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/metrics"
)

var metricConversions = metrics.LazyLoadCounterVec("fund_conversions_count", []string{"from", "to"})

// Converter decides whether a source bucket takes part in a conversion and,
// if so, the description its funds move to.
type Converter func(owner uint64, desc Description) (Description, bool)

// To converts every bucket into an untagged bucket of type t.
func To(t Type) Converter {
	return func(uint64, Description) (Description, bool) { return Describe(t), true }
}

// ToAt converts every bucket into a bucket of type t tagged with created.
func ToAt(t Type, created uint64) Converter {
	return func(uint64, Description) (Description, bool) { return DescribeAt(t, created), true }
}

// KeepTag converts every bucket into type t, carrying the source tag over.
func KeepTag(t Type) Converter {
	return func(_ uint64, d Description) (Description, bool) { return DescribeAt(t, d.Created), true }
}

// When restricts a converter to buckets satisfying pred.
func (c Converter) When(pred func(Description) bool) Converter {
	return func(owner uint64, d Description) (Description, bool) {
		if !pred(d) {
			return Description{}, false
		}
		return c(owner, d)
	}
}

// Engine implements stake lifecycle transformations on top of a Ledger.
type Engine struct {
	ledger *Ledger
}

func NewEngine(ledger *Ledger) *Engine {
	return &Engine{ledger: ledger}
}

func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// SplitConvertMaxByType moves funds out of every owner's buckets of the source
// type, in scan order, into the descriptions chosen by conv. When max is not
// nil at most max is moved and max is decremented by the amount moved, so a
// non-zero max on return is the unconverted remainder. Returns the touched
// owners in ascending order.
func (e *Engine) SplitConvertMaxByType(max *big.Int, source Type, conv Converter) ([]uint64, error) {
	return e.splitConvert(max, source, PoolOwner, conv)
}

// SplitConvertMaxByUser is SplitConvertMaxByType restricted to one owner.
func (e *Engine) SplitConvertMaxByUser(max *big.Int, owner uint64, source Type, conv Converter) error {
	if owner == PoolOwner {
		return ErrReservedOwner
	}
	_, err := e.splitConvert(max, source, owner, conv)
	return err
}

func (e *Engine) splitConvert(max *big.Int, source Type, owner uint64, conv Converter) ([]uint64, error) {
	if max != nil && max.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	// snapshot first, the ledger is mutated below
	buckets, err := e.ledger.Buckets(source, owner)
	if err != nil {
		return nil, err
	}

	var touched []uint64
	for _, b := range buckets {
		if max != nil && max.Sign() == 0 {
			break
		}
		dest, ok := conv(b.Owner, b.Desc)
		if !ok {
			continue
		}
		amount := b.Amount
		if max != nil && amount.Cmp(max) > 0 {
			amount = new(big.Int).Set(max)
		}
		moved, err := e.ledger.WithdrawMax(b.Owner, b.Desc, amount)
		if err != nil {
			return nil, err
		}
		if err := e.ledger.Deposit(b.Owner, dest, moved); err != nil {
			return nil, err
		}
		if max != nil {
			max.Sub(max, moved)
		}
		metricConversions().AddWithLabel(1, map[string]string{"from": source.String(), "to": dest.Type.String()})
		if len(touched) == 0 || touched[len(touched)-1] != b.Owner {
			touched = append(touched, b.Owner)
		}
	}
	// scan order is owner ascending already, compact guards against equal neighbours only
	return slices.Compact(touched), nil
}

// convertExact moves exactly amount from eligible source buckets pool-wide, or
// nothing at all when the eligible supply is short.
func (e *Engine) convertExact(amount *big.Int, source Type, conv Converter, eligible func(Description) bool, shortMsg string) ([]uint64, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, nil
	}
	available, err := e.ledger.Sum(PoolOwner, source, eligible)
	if err != nil {
		return nil, err
	}
	if available.Cmp(amount) < 0 {
		return nil, reverts.New(shortMsg)
	}
	if eligible != nil {
		conv = conv.When(eligible)
	}
	remaining := new(big.Int).Set(amount)
	owners, err := e.SplitConvertMaxByType(remaining, source, conv)
	if err != nil {
		return nil, err
	}
	if remaining.Sign() != 0 {
		return nil, errors.Errorf("%v conversion left %v unconverted", source, remaining)
	}
	logger.Debug("converted funds", "from", source, "amount", amount, "owners", owners)
	return owners, nil
}

// CreateWaiting records a user's new stake as waiting for activation.
func (e *Engine) CreateWaiting(owner uint64, amount *big.Int) error {
	return e.ledger.Deposit(owner, Describe(Waiting), amount)
}

// LiquidateFreeStake withdraws a user's inactive stake, WithdrawOnly first,
// then Waiting.
func (e *Engine) LiquidateFreeStake(owner uint64, amount *big.Int) error {
	if owner == PoolOwner {
		return ErrReservedOwner
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	withdrawOnly, err := e.ledger.Balance(owner, Describe(WithdrawOnly))
	if err != nil {
		return err
	}
	waiting, err := e.ledger.Balance(owner, Describe(Waiting))
	if err != nil {
		return err
	}
	if new(big.Int).Add(withdrawOnly, waiting).Cmp(amount) < 0 {
		return reverts.New("cannot withdraw more than inactive stake")
	}

	remaining := new(big.Int).Set(amount)
	for _, t := range []Type{WithdrawOnly, Waiting} {
		moved, err := e.ledger.WithdrawMax(owner, Describe(t), remaining)
		if err != nil {
			return err
		}
		remaining.Sub(remaining, moved)
	}
	return nil
}

// ActivateStart reserves stake for nodes being staked.
func (e *Engine) ActivateStart(amount *big.Int) ([]uint64, error) {
	return e.convertExact(amount, Waiting, To(PendingActivation), nil, "not enough funds in contract to stake nodes")
}

// ActivateFinishOK confirms reserved stake as active.
func (e *Engine) ActivateFinishOK(amount *big.Int) ([]uint64, error) {
	return e.convertExact(amount, PendingActivation, To(Active), nil, "not enough stake pending activation")
}

// ActivateFinishFail releases reserved stake back to Waiting, or parks it as
// ActivationFailed when the authority keeps the funds until claimed.
func (e *Engine) ActivateFinishFail(amount *big.Int, hold bool) ([]uint64, error) {
	dest := Waiting
	if hold {
		dest = ActivationFailed
	}
	return e.convertExact(amount, PendingActivation, To(dest), nil, "not enough stake pending activation")
}

// ClaimActivationFailed returns claimed stake of failed activations to Waiting.
func (e *Engine) ClaimActivationFailed(amount *big.Int) ([]uint64, error) {
	return e.convertExact(amount, ActivationFailed, To(Waiting), nil, "not enough failed activation stake")
}

// UnstakeStart marks active stake as being deactivated at block current.
func (e *Engine) UnstakeStart(amount *big.Int, current uint64) ([]uint64, error) {
	return e.convertExact(amount, Active, ToAt(PendingDeactivation, current), nil, "not enough active stake")
}

// UnstakeFinishOK starts the unbond period of deactivated stake at block current.
func (e *Engine) UnstakeFinishOK(amount *big.Int, current uint64) ([]uint64, error) {
	return e.convertExact(amount, PendingDeactivation, ToAt(UnStaked, current), nil, "not enough stake pending deactivation")
}

// UnstakeFinishFail returns stake pending deactivation to Active.
func (e *Engine) UnstakeFinishFail(amount *big.Int) ([]uint64, error) {
	return e.convertExact(amount, PendingDeactivation, To(Active), nil, "not enough stake pending deactivation")
}

// UnbondStart moves unstaked stake whose unbond period has elapsed to
// PendingUnBond in ledger scan order, keeping the unstake block.
func (e *Engine) UnbondStart(amount *big.Int, current, delay uint64) ([]uint64, error) {
	eligible := func(d Description) bool { return PeriodElapsed(current, d.Created, delay) }
	return e.convertExact(amount, UnStaked, KeepTag(PendingUnBond), eligible, "not enough stake in unbond period")
}

// UnbondFinishOK releases unbonded stake, directly withdrawable when
// claimDelay is zero, otherwise as a deferred payment created at current.
func (e *Engine) UnbondFinishOK(amount *big.Int, current, claimDelay uint64) ([]uint64, error) {
	conv := To(WithdrawOnly)
	if claimDelay > 0 {
		conv = ToAt(DeferredPayment, current)
	}
	return e.convertExact(amount, PendingUnBond, conv, nil, "not enough stake pending unbond")
}

// UnbondFinishFail returns stake pending unbond to UnStaked with its original tag.
func (e *Engine) UnbondFinishFail(amount *big.Int) ([]uint64, error) {
	return e.convertExact(amount, PendingUnBond, KeepTag(UnStaked), nil, "not enough stake pending unbond")
}

func deferredEligible(current, delay uint64) func(Description) bool {
	return func(d Description) bool { return PeriodElapsed(current, d.Created, delay) }
}

// EligibleDeferredPayment sums the owner's deferred payments that can be claimed.
func (e *Engine) EligibleDeferredPayment(owner uint64, current, delay uint64) (*big.Int, error) {
	return e.ledger.Sum(owner, DeferredPayment, deferredEligible(current, delay))
}

// ClaimAllEligibleDeferredPayments turns the owner's eligible deferred payments
// into withdrawable funds and returns the amount moved.
func (e *Engine) ClaimAllEligibleDeferredPayments(owner uint64, current, delay uint64) (*big.Int, error) {
	eligible, err := e.EligibleDeferredPayment(owner, current, delay)
	if err != nil {
		return nil, err
	}
	if eligible.Sign() == 0 {
		return eligible, nil
	}
	conv := To(WithdrawOnly).When(deferredEligible(current, delay))
	if err := e.SplitConvertMaxByUser(nil, owner, DeferredPayment, conv); err != nil {
		return nil, err
	}
	return eligible, nil
}
