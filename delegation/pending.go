// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"math/big"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var (
	slotPendingCalls = thor.BytesToBytes32([]byte("pending-calls"))
	slotPendingCount = thor.BytesToBytes32([]byte("pending-count"))
	slotPendingClaim = thor.BytesToBytes32([]byte("pending-claim"))
)

// pendingCall is the persisted token of an outstanding authority request.
type pendingCall struct {
	ID        string
	Kind      auction.Kind
	NodeIDs   []uint64
	Keys      []thor.BLSKey
	Started   []uint64 // unbond period start per node, UnBond only
	Amount    *big.Int
	Block     uint64
	Requester uint64
	Deadline  uint64 // force unstake deadline, unstake only
}

func (c *pendingCall) request(sigs []thor.BLSSignature) *auction.Request {
	req := &auction.Request{
		ID:         c.ID,
		Kind:       c.Kind,
		NodeIDs:    c.NodeIDs,
		Keys:       c.Keys,
		Signatures: sigs,
		Block:      c.Block,
	}
	if c.Amount != nil && c.Amount.Sign() > 0 {
		req.Amount = new(big.Int).Set(c.Amount)
	}
	return req
}

type pendingStore struct {
	calls *storage.Mapping[storage.StringKey, *pendingCall]
	count *storage.Var[uint64]
	claim *storage.Var[string]
}

func newPendingStore(store kv.Store) *pendingStore {
	sctx := storage.NewContext(kv.Bucket("p").NewStore(store))
	return &pendingStore{
		calls: storage.NewMapping[storage.StringKey, *pendingCall](sctx, slotPendingCalls),
		count: storage.NewVar[uint64](sctx, slotPendingCount),
		claim: storage.NewVar[string](sctx, slotPendingClaim),
	}
}

// open assigns a fresh id to call and persists it.
func (p *pendingStore) open(call *pendingCall) error {
	call.ID = uuid.New()
	if call.Amount == nil {
		call.Amount = new(big.Int)
	}
	if err := p.calls.Set(storage.StringKey(call.ID), call); err != nil {
		return errors.Wrap(err, "failed to store pending request")
	}
	if call.Kind == auction.Claim {
		if err := p.claim.Set(call.ID); err != nil {
			return errors.Wrap(err, "failed to store pending claim")
		}
	}
	return p.adjust(1)
}

func (p *pendingStore) get(id string) (*pendingCall, error) {
	if id == "" {
		return nil, ErrUnknownRequest
	}
	call, err := p.calls.Get(storage.StringKey(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load pending request")
	}
	if call == nil {
		return nil, ErrUnknownRequest
	}
	return call, nil
}

// close removes the token, so any later response for it is rejected.
func (p *pendingStore) close(call *pendingCall) error {
	if err := p.calls.Delete(storage.StringKey(call.ID)); err != nil {
		return errors.Wrap(err, "failed to delete pending request")
	}
	if call.Kind == auction.Claim {
		if err := p.claim.Set(""); err != nil {
			return err
		}
	}
	return p.adjust(-1)
}

func (p *pendingStore) claimInProgress() (bool, error) {
	id, _, err := p.claim.Get()
	return id != "", err
}

func (p *pendingStore) size() (uint64, error) {
	n, _, err := p.count.Get()
	return n, err
}

func (p *pendingStore) adjust(delta int64) error {
	n, err := p.size()
	if err != nil {
		return err
	}
	if delta < 0 && n == 0 {
		return errors.New("pending request count underflow")
	}
	n = uint64(int64(n) + delta)
	if err := p.count.Set(n); err != nil {
		return err
	}
	metricPending().Set(int64(n))
	return nil
}
