// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package funds

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/dispatch"
	"github.com/vechain/delegator/delegation/fund"
)

type Amount struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

type Position struct {
	Balances          map[string]*math.HexOrDecimal256 `json:"balances"`
	ClaimableDeferred *math.HexOrDecimal256            `json:"claimableDeferred,omitempty"`
	UnclaimedRewards  *math.HexOrDecimal256            `json:"unclaimedRewards,omitempty"`
}

func convertPosition(f *delegation.Funds) *Position {
	out := &Position{
		Balances:          make(map[string]*math.HexOrDecimal256, len(f.Balances)),
		ClaimableDeferred: (*math.HexOrDecimal256)(f.ClaimableDeferred),
		UnclaimedRewards:  (*math.HexOrDecimal256)(f.UnclaimedRewards),
	}
	for t, v := range f.Balances {
		out.Balances[t.String()] = (*math.HexOrDecimal256)(v)
	}
	return out
}

type Funds struct {
	deleg *delegation.Delegation
	disp  *dispatch.Dispatcher
}

func New(deleg *delegation.Delegation, disp *dispatch.Dispatcher) *Funds {
	return &Funds{
		deleg,
		disp,
	}
}

func parseUser(req *http.Request) (uint64, error) {
	user, err := strconv.ParseUint(mux.Vars(req)["user"], 10, 64)
	if err != nil {
		return 0, utils.BadRequest(errors.WithMessage(err, "user"))
	}
	if user == fund.PoolOwner {
		return 0, utils.BadRequest(errors.New("user: id 0 is reserved"))
	}
	return user, nil
}

// ownUser resolves the path user and requires the caller to be that user.
func ownUser(req *http.Request) (uint64, error) {
	user, err := parseUser(req)
	if err != nil {
		return 0, err
	}
	caller, err := utils.Caller(req)
	if err != nil {
		return 0, err
	}
	if caller != user {
		return 0, utils.Forbidden(errors.New("caller does not own these funds"))
	}
	return user, nil
}

func parseAmount(req *http.Request) (*big.Int, error) {
	var body Amount
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Amount == nil {
		return nil, utils.BadRequest(errors.New("amount: required"))
	}
	return (*big.Int)(body.Amount), nil
}

func (f *Funds) handleDeposit(w http.ResponseWriter, req *http.Request) error {
	user, err := parseUser(req)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req)
	if err != nil {
		return err
	}
	if err := f.disp.Exec(req.Context(), func() error { return f.deleg.Deposit(user, amount) }); err != nil {
		return err
	}
	return f.writeFunds(w, req, user)
}

func (f *Funds) handleWithdraw(w http.ResponseWriter, req *http.Request) error {
	user, err := ownUser(req)
	if err != nil {
		return err
	}
	amount, err := parseAmount(req)
	if err != nil {
		return err
	}
	if err := f.disp.Exec(req.Context(), func() error { return f.deleg.Withdraw(user, amount) }); err != nil {
		return err
	}
	return f.writeFunds(w, req, user)
}

func (f *Funds) handleClaimDeferred(w http.ResponseWriter, req *http.Request) error {
	user, err := ownUser(req)
	if err != nil {
		return err
	}
	var amount *big.Int
	if err := f.disp.Exec(req.Context(), func() (err error) {
		amount, err = f.deleg.ClaimDeferredPayments(user)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &Amount{Amount: (*math.HexOrDecimal256)(amount)})
}

func (f *Funds) handleClaimRewards(w http.ResponseWriter, req *http.Request) error {
	user, err := ownUser(req)
	if err != nil {
		return err
	}
	var amount *big.Int
	if err := f.disp.Exec(req.Context(), func() (err error) {
		amount, err = f.deleg.ClaimRewards(user)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &Amount{Amount: (*math.HexOrDecimal256)(amount)})
}

func (f *Funds) handleAddRewards(w http.ResponseWriter, req *http.Request) error {
	amount, err := parseAmount(req)
	if err != nil {
		return err
	}
	if err := f.disp.Exec(req.Context(), func() error { return f.deleg.AddRewards(amount) }); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (f *Funds) handleGetFunds(w http.ResponseWriter, req *http.Request) error {
	user, err := parseUser(req)
	if err != nil {
		return err
	}
	return f.writeFunds(w, req, user)
}

func (f *Funds) handleGetPool(w http.ResponseWriter, req *http.Request) error {
	return f.writeFunds(w, req, fund.PoolOwner)
}

func (f *Funds) writeFunds(w http.ResponseWriter, req *http.Request, user uint64) error {
	var funds *delegation.Funds
	if err := f.disp.Exec(req.Context(), func() (err error) {
		funds, err = f.deleg.Funds(user)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, convertPosition(funds))
}

func (f *Funds) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("funds_get_pool").
		HandlerFunc(utils.WrapHandlerFunc(f.handleGetPool))
	sub.Path("/rewards").
		Methods(http.MethodPost).
		Name("funds_add_rewards").
		HandlerFunc(utils.WrapHandlerFunc(f.handleAddRewards))
	sub.Path("/{user:[0-9]+}").
		Methods(http.MethodGet).
		Name("funds_get_user").
		HandlerFunc(utils.WrapHandlerFunc(f.handleGetFunds))
	sub.Path("/{user:[0-9]+}/deposit").
		Methods(http.MethodPost).
		Name("funds_deposit").
		HandlerFunc(utils.WrapHandlerFunc(f.handleDeposit))
	sub.Path("/{user:[0-9]+}/withdraw").
		Methods(http.MethodPost).
		Name("funds_withdraw").
		HandlerFunc(utils.WrapHandlerFunc(f.handleWithdraw))
	sub.Path("/{user:[0-9]+}/claim-deferred").
		Methods(http.MethodPost).
		Name("funds_claim_deferred").
		HandlerFunc(utils.WrapHandlerFunc(f.handleClaimDeferred))
	sub.Path("/{user:[0-9]+}/claim-rewards").
		Methods(http.MethodPost).
		Name("funds_claim_rewards").
		HandlerFunc(utils.WrapHandlerFunc(f.handleClaimRewards))
}
