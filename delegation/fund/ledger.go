// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fund

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var logger = log.WithContext("pkg", "fund")

var (
	ErrReservedOwner = errors.New("owner id is reserved for the pool")
	ErrInvalidAmount = errors.New("amount must not be negative")
	ErrInvalidType   = errors.New("unknown fund type")
)

const keyLen = 1 + 8 + 8

// Ledger stores ownership tagged amounts. Bucket keys are type|owner|created,
// so a scan over one type visits owners in ascending order and each owner's
// buckets oldest first.
type Ledger struct {
	buckets kv.Store
	totals  map[Type]*storage.Uint256
}

func NewLedger(store kv.Store) *Ledger {
	sctx := storage.NewContext(kv.Bucket("t").NewStore(store))
	totals := make(map[Type]*storage.Uint256, len(Types))
	for _, t := range Types {
		totals[t] = storage.NewUint256(sctx, thor.BytesToBytes32([]byte("total-"+t.String())))
	}
	return &Ledger{
		buckets: kv.Bucket("b").NewStore(store),
		totals:  totals,
	}
}

func bucketKey(owner uint64, desc Description) []byte {
	var k [keyLen]byte
	k[0] = byte(desc.Type)
	binary.BigEndian.PutUint64(k[1:], owner)
	binary.BigEndian.PutUint64(k[9:], desc.Created)
	return k[:]
}

func parseBucketKey(k []byte) (uint64, Description, error) {
	if len(k) != keyLen {
		return 0, Description{}, errors.Errorf("malformed bucket key %x", k)
	}
	return binary.BigEndian.Uint64(k[1:]), Description{
		Type:    Type(k[0]),
		Created: binary.BigEndian.Uint64(k[9:]),
	}, nil
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Balance returns the amount held in a single bucket.
func (l *Ledger) Balance(owner uint64, desc Description) (*big.Int, error) {
	desc = desc.normalized()
	raw, err := l.buckets.Get(bucketKey(owner, desc))
	if err != nil {
		if l.buckets.IsNotFound(err) {
			return new(big.Int), nil
		}
		return nil, errors.Wrap(err, "failed to get bucket")
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(raw, amount); err != nil {
		return nil, errors.Wrap(err, "failed to decode bucket")
	}
	return amount, nil
}

func (l *Ledger) setBalance(owner uint64, desc Description, amount *big.Int) error {
	key := bucketKey(owner, desc)
	if amount.Sign() == 0 {
		return errors.Wrap(l.buckets.Delete(key), "failed to prune bucket")
	}
	raw, err := rlp.EncodeToBytes(amount)
	if err != nil {
		return errors.Wrap(err, "failed to encode bucket")
	}
	return errors.Wrap(l.buckets.Put(key, raw), "failed to set bucket")
}

// Deposit adds amount to the owner's bucket. A zero amount is a no-op.
func (l *Ledger) Deposit(owner uint64, desc Description, amount *big.Int) error {
	if owner == PoolOwner {
		return ErrReservedOwner
	}
	if !desc.Type.Valid() {
		return ErrInvalidType
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	desc = desc.normalized()

	balance, err := l.Balance(owner, desc)
	if err != nil {
		return err
	}
	// a bucket never exceeds its pool total
	if err := l.totals[desc.Type].Add(amount); err != nil {
		return errors.Wrap(err, "failed to update pool total")
	}
	if err := l.setBalance(owner, desc, balance.Add(balance, amount)); err != nil {
		return l.restoreTotal(desc.Type, new(big.Int).Neg(amount), err)
	}
	logger.Trace("deposit", "owner", owner, "desc", desc, "amount", amount)
	return nil
}

// WithdrawMax removes up to requested from the owner's bucket and returns the
// amount actually withdrawn. Shortage is not an error.
func (l *Ledger) WithdrawMax(owner uint64, desc Description, requested *big.Int) (*big.Int, error) {
	if owner == PoolOwner {
		return nil, ErrReservedOwner
	}
	if err := checkAmount(requested); err != nil {
		return nil, err
	}
	desc = desc.normalized()

	balance, err := l.Balance(owner, desc)
	if err != nil {
		return nil, err
	}
	withdrawn := new(big.Int).Set(requested)
	if balance.Cmp(withdrawn) < 0 {
		withdrawn.Set(balance)
	}
	if withdrawn.Sign() == 0 {
		return withdrawn, nil
	}
	if err := l.totals[desc.Type].Sub(withdrawn); err != nil {
		return nil, errors.Wrap(err, "failed to update pool total")
	}
	if err := l.setBalance(owner, desc, balance.Sub(balance, withdrawn)); err != nil {
		return nil, l.restoreTotal(desc.Type, withdrawn, err)
	}
	logger.Trace("withdraw", "owner", owner, "desc", desc, "amount", withdrawn)
	return withdrawn, nil
}

// restoreTotal undoes a pool total update after the bucket write failed.
func (l *Ledger) restoreTotal(t Type, delta *big.Int, cause error) error {
	if err := l.totals[t].Add(delta); err != nil {
		logger.Error("failed to restore pool total", "type", t, "err", err)
	}
	return cause
}

// Buckets returns the non-empty buckets of a type in scan order. PoolOwner
// selects every owner.
func (l *Ledger) Buckets(t Type, owner uint64) ([]*Bucket, error) {
	prefix := []byte{byte(t)}
	if owner != PoolOwner {
		prefix = binary.BigEndian.AppendUint64(prefix, owner)
	}

	iter := l.buckets.Iterate(kv.PrefixRange(prefix))
	defer iter.Release()

	var buckets []*Bucket
	for iter.Next() {
		bucketOwner, desc, err := parseBucketKey(iter.Key())
		if err != nil {
			return nil, err
		}
		amount := new(big.Int)
		if err := rlp.DecodeBytes(iter.Value(), amount); err != nil {
			return nil, errors.Wrap(err, "failed to decode bucket")
		}
		buckets = append(buckets, &Bucket{Owner: bucketOwner, Desc: desc, Amount: amount})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate buckets")
	}
	return buckets, nil
}

// Sum adds up the buckets of a type whose description satisfies pred (nil
// matches all). PoolOwner sums across every owner.
func (l *Ledger) Sum(owner uint64, t Type, pred func(Description) bool) (*big.Int, error) {
	if owner == PoolOwner && pred == nil {
		return l.Total(t)
	}
	buckets, err := l.Buckets(t, owner)
	if err != nil {
		return nil, err
	}
	sum := new(big.Int)
	for _, b := range buckets {
		if pred == nil || pred(b.Desc) {
			sum.Add(sum, b.Amount)
		}
	}
	return sum, nil
}

// Total returns the pool-wide amount held in a type.
func (l *Ledger) Total(t Type) (*big.Int, error) {
	counter, ok := l.totals[t]
	if !ok {
		return nil, ErrInvalidType
	}
	return counter.Get()
}

// Summary returns the owner's amount per type, omitting empty types.
// PoolOwner yields the pool totals.
func (l *Ledger) Summary(owner uint64) (map[Type]*big.Int, error) {
	summary := make(map[Type]*big.Int)
	for _, t := range Types {
		sum, err := l.Sum(owner, t, nil)
		if err != nil {
			return nil, err
		}
		if sum.Sign() > 0 {
			summary[t] = sum
		}
	}
	return summary, nil
}
