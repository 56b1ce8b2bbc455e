// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/dispatch"
)

type Toggle struct {
	Enabled *bool `json:"enabled"`
}

type CheckpointReset struct {
	Action string `json:"action"`
}

type Admin struct {
	deleg *delegation.Delegation
	disp  *dispatch.Dispatcher
}

func New(deleg *delegation.Delegation, disp *dispatch.Dispatcher) *Admin {
	return &Admin{
		deleg,
		disp,
	}
}

func (a *Admin) toggle(set func(caller uint64, on bool) error) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		caller, err := utils.Caller(req)
		if err != nil {
			return err
		}
		var body Toggle
		if err := utils.ParseJSON(req.Body, &body); err != nil {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		if body.Enabled == nil {
			return utils.BadRequest(errors.New("enabled: required"))
		}
		if err := a.disp.Exec(req.Context(), func() error { return set(caller, *body.Enabled) }); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
}

func (a *Admin) handleCheckpointReset(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var body CheckpointReset
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}

	var op func(uint64) error
	switch body.Action {
	case "start":
		op = a.deleg.StartCheckpointReset
	case "finish":
		op = a.deleg.FinishCheckpointReset
	default:
		return utils.BadRequest(errors.New("action: must be start or finish"))
	}
	if err := a.disp.Exec(req.Context(), func() error { return op(caller) }); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/bootstrap").
		Methods(http.MethodPost).
		Name("admin_bootstrap").
		HandlerFunc(utils.WrapHandlerFunc(a.toggle(a.deleg.SetBootstrapMode)))
	sub.Path("/auto-activation").
		Methods(http.MethodPost).
		Name("admin_auto_activation").
		HandlerFunc(utils.WrapHandlerFunc(a.toggle(a.deleg.SetAutoActivation)))
	sub.Path("/checkpoint-reset").
		Methods(http.MethodPost).
		Name("admin_checkpoint_reset").
		HandlerFunc(utils.WrapHandlerFunc(a.handleCheckpointReset))
}
