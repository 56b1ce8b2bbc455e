// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nodes

import (
	"io"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/utils"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/dispatch"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/thor"
)

type Nodes struct {
	deleg *delegation.Delegation
	disp  *dispatch.Dispatcher
}

func New(deleg *delegation.Delegation, disp *dispatch.Dispatcher) *Nodes {
	return &Nodes{
		deleg,
		disp,
	}
}

func (n *Nodes) handleAddNodes(w http.ResponseWriter, req *http.Request) error {
	caller, err := utils.Caller(req)
	if err != nil {
		return err
	}
	var body AddNodes
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	keys := make([]thor.BLSKey, 0, len(body.Nodes))
	sigs := make([]thor.BLSSignature, 0, len(body.Nodes))
	for _, nd := range body.Nodes {
		keys = append(keys, nd.Key)
		sigs = append(sigs, nd.Signature)
	}

	var ids []uint64
	if err := n.disp.Exec(req.Context(), func() (err error) {
		ids, err = n.deleg.AddNodes(caller, keys, sigs)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, &AddNodesResult{IDs: ids})
}

func (n *Nodes) handleGetNode(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	var nd *node.Node
	if err := n.disp.Exec(req.Context(), func() (err error) {
		nd, err = n.deleg.Node(id)
		return err
	}); err != nil {
		return err
	}
	return utils.WriteJSON(w, convertNode(nd))
}

func (n *Nodes) handleGetNodes(w http.ResponseWriter, req *http.Request) error {
	var status *node.Status
	if s := req.URL.Query().Get("status"); s != "" {
		parsed, err := node.ParseStatus(s)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "status"))
		}
		status = &parsed
	}
	var list []*node.Node
	if err := n.disp.Exec(req.Context(), func() (err error) {
		list, err = n.deleg.Nodes(status)
		return err
	}); err != nil {
		return err
	}
	out := make([]*Node, 0, len(list))
	for _, nd := range list {
		out = append(out, convertNode(nd))
	}
	return utils.WriteJSON(w, out)
}

// command runs a command built from the caller and the decoded body.
func command[T any](n *Nodes, build func(caller uint64, body *T) (*auction.Request, error)) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		caller, err := utils.Caller(req)
		if err != nil {
			return err
		}
		var body T
		// commands without arguments accept an empty body
		if err := utils.ParseJSON(req.Body, &body); err != nil && err != io.EOF {
			return utils.BadRequest(errors.WithMessage(err, "body"))
		}
		r, err := n.disp.Command(req.Context(), func() (*auction.Request, error) {
			return build(caller, &body)
		})
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, &CommandResult{Request: r})
	}
}

type none struct{}

func (n *Nodes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("nodes_add").
		HandlerFunc(utils.WrapHandlerFunc(n.handleAddNodes))
	sub.Path("").
		Methods(http.MethodGet).
		Name("nodes_list").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetNodes))
	sub.Path("/{id:[0-9]+}").
		Methods(http.MethodGet).
		Name("nodes_get").
		HandlerFunc(utils.WrapHandlerFunc(n.handleGetNode))

	commands := []struct {
		path    string
		name    string
		handler utils.HandlerFunc
	}{
		{"/stake", "nodes_stake", command(n, func(caller uint64, b *Stake) (*auction.Request, error) {
			return n.deleg.StakeNodes(caller, b.Keys, (*big.Int)(b.Amount))
		})},
		{"/stake-all", "nodes_stake_all", command(n, func(caller uint64, _ *none) (*auction.Request, error) {
			return n.deleg.StakeAllAvailable(caller)
		})},
		{"/unstake", "nodes_unstake", command(n, func(caller uint64, b *Keys) (*auction.Request, error) {
			return n.deleg.UnstakeNodes(caller, b.Keys)
		})},
		{"/unstake-tokens", "nodes_unstake_tokens", command(n, func(caller uint64, b *Keys) (*auction.Request, error) {
			return n.deleg.UnstakeNodesAndTokens(caller, b.Keys)
		})},
		{"/unbond", "nodes_unbond", command(n, func(caller uint64, b *Keys) (*auction.Request, error) {
			return n.deleg.UnbondNodes(caller, b.Keys)
		})},
		{"/unbond-all", "nodes_unbond_all", command(n, func(caller uint64, _ *none) (*auction.Request, error) {
			return n.deleg.UnbondAllAvailable(caller)
		})},
		{"/claim-failed", "nodes_claim_failed", command(n, func(caller uint64, _ *none) (*auction.Request, error) {
			return n.deleg.ClaimFailedStake(caller)
		})},
		{"/unjail", "nodes_unjail", command(n, func(caller uint64, b *Unjail) (*auction.Request, error) {
			return n.deleg.UnjailNodes(caller, b.Keys, (*big.Int)(b.Fine))
		})},
	}
	for _, c := range commands {
		sub.Path(c.path).
			Methods(http.MethodPost).
			Name(c.name).
			HandlerFunc(utils.WrapHandlerFunc(c.handler))
	}
}
