// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authority serves the endpoints the auction authority talks to.
package authority

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/dispatch"
)

type Authority struct {
	deleg *delegation.Delegation
	disp  *dispatch.Dispatcher
}

func New(deleg *delegation.Delegation, disp *dispatch.Dispatcher) *Authority {
	return &Authority{
		deleg,
		disp,
	}
}

func (a *Authority) handleResponse(w http.ResponseWriter, req *http.Request) error {
	var resp auction.Response
	if err := utils.ParseJSON(req.Body, &resp); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if resp.RequestID == "" {
		return utils.BadRequest(errors.New("requestID: required"))
	}
	out, err := a.disp.Deliver(req.Context(), &resp)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, out)
}

func (a *Authority) handleClaimUnused(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	r, err := a.disp.Command(req.Context(), func() (*auction.Request, error) {
		return a.deleg.ClaimUnusedFunds(caller)
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"request": r})
}

func (a *Authority) handlePending(w http.ResponseWriter, req *http.Request) error {
	var n uint64
	if err := a.disp.Exec(req.Context(), func() (err error) {
		n, err = a.deleg.PendingRequests()
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"pending": n})
}

func (a *Authority) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/responses").
		Methods(http.MethodPost).
		Name("auction_response").
		HandlerFunc(utils.WrapHandlerFunc(a.handleResponse))
	sub.Path("/claim-unused").
		Methods(http.MethodPost).
		Name("auction_claim_unused").
		HandlerFunc(utils.WrapHandlerFunc(a.handleClaimUnused))
	sub.Path("/pending").
		Methods(http.MethodGet).
		Name("auction_pending").
		HandlerFunc(utils.WrapHandlerFunc(a.handlePending))
}
