// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package delegation

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/thor"
)

// Outcome summarizes how a response was applied.
type Outcome struct {
	RequestID string       `json:"requestID"`
	Kind      auction.Kind `json:"kind"`
	Succeeded []uint64     `json:"succeeded"`
	Failed    []uint64     `json:"failed"`
	Message   string       `json:"message,omitempty"`
}

// partition splits the request's nodes into succeeded and failed ones,
// preserving request order.
func partition(call *pendingCall, resp *auction.Response) (ok, fail []uint64, msg string, err error) {
	if resp.Failed() {
		return nil, append([]uint64(nil), call.NodeIDs...), resp.Error, nil
	}

	statuses := make(map[thor.BLSKey]*auction.Status, len(resp.Statuses))
	for i := range resp.Statuses {
		st := &resp.Statuses[i]
		if _, dup := statuses[st.Key]; dup {
			return nil, nil, "", errors.Wrapf(ErrProtocolViolation, "duplicate status for node key %v", st.Key.AbbrevString())
		}
		statuses[st.Key] = st
	}
	if len(statuses) != len(call.Keys) {
		for key := range statuses {
			if !containsKey(call.Keys, key) {
				return nil, nil, "", errors.Wrapf(ErrProtocolViolation, "status for node key %v not in request", key.AbbrevString())
			}
		}
	}

	var messages []string
	for i, key := range call.Keys {
		st, found := statuses[key]
		if !found {
			return nil, nil, "", errors.Wrapf(ErrProtocolViolation, "no status for node %d", call.NodeIDs[i])
		}
		if st.OK() {
			ok = append(ok, call.NodeIDs[i])
			continue
		}
		fail = append(fail, call.NodeIDs[i])
		if st.Message != "" {
			messages = append(messages, st.Message)
		}
	}
	return ok, fail, strings.Join(messages, "; "), nil
}

func containsKey(keys []thor.BLSKey, key thor.BLSKey) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// expectedStatus is the pending status every node of an outstanding request must be in.
func expectedStatus(kind auction.Kind) (node.Status, bool) {
	switch kind {
	case auction.Stake:
		return node.PendingActivation, true
	case auction.UnStake, auction.UnStakeNodes:
		return node.PendingDeactivation, true
	case auction.UnBond:
		return node.PendingUnBond, true
	case auction.Claim:
		return node.ActivationFailed, true
	}
	return 0, false
}

// checkNodes verifies every node of call is still in the state its request left it in.
func (d *Delegation) checkNodes(call *pendingCall) error {
	want, ok := expectedStatus(call.Kind)
	if !ok {
		return nil
	}
	for i, id := range call.NodeIDs {
		st, err := d.registry.State(id)
		if err != nil {
			return err
		}
		if st.Status != want {
			return errors.Wrapf(ErrProtocolViolation, "node %d is %v, expected %v", id, st, want)
		}
		if call.Kind == auction.UnBond && st.Started != call.Started[i] {
			return errors.Wrapf(ErrProtocolViolation, "node %d unbond start %d, expected %d", id, st.Started, call.Started[i])
		}
	}
	return nil
}

// Resolve applies the authority's response to its outstanding request.
// Unknown and already resolved requests yield ErrUnknownRequest. A response
// that contradicts the request leaves it outstanding and returns an error
// wrapping ErrProtocolViolation.
func (d *Delegation) Resolve(resp *auction.Response) (*Outcome, error) {
	call, err := d.pending.get(resp.RequestID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{RequestID: call.ID, Kind: call.Kind}
	if call.Kind.PerNode() {
		out.Succeeded, out.Failed, out.Message, err = partition(call, resp)
		if err != nil {
			return nil, err
		}
	} else if resp.Failed() {
		out.Failed, out.Message = call.NodeIDs, resp.Error
	} else {
		out.Succeeded = call.NodeIDs
	}
	if err := d.checkNodes(call); err != nil {
		return nil, err
	}

	if err := d.pending.close(call); err != nil {
		return nil, err
	}
	if err := d.apply(call, out, resp.Failed()); err != nil {
		return nil, err
	}
	d.reportPool()
	logger.Info("request resolved", "id", call.ID, "kind", call.Kind, "ok", out.Succeeded, "failed", out.Failed)
	return out, nil
}

func (d *Delegation) apply(call *pendingCall, out *Outcome, failed bool) error {
	switch call.Kind {
	case auction.Stake:
		if err := d.stakeOK(call, out.Succeeded); err != nil {
			return err
		}
		return d.stakeFail(call, out.Failed, out.Message)
	case auction.UnStake, auction.UnStakeNodes:
		if err := d.unstakeOK(call, out.Succeeded); err != nil {
			return err
		}
		return d.unstakeFail(call, out.Failed, out.Message)
	case auction.UnBond:
		if err := d.unbondOK(call, out.Succeeded); err != nil {
			return err
		}
		return d.unbondFail(call, out.Failed, out.Message)
	case auction.Claim:
		if failed {
			d.emit(call, events.ClaimFail, call.NodeIDs, out.Message)
			return nil
		}
		return d.claimOK(call)
	case auction.ClaimUnused:
		d.emitResult(call, failed, events.ClaimUnusedOK, events.ClaimUnusedFail, out.Message)
		return nil
	case auction.UnJail:
		d.emitResult(call, failed, events.UnjailOK, events.UnjailFail, out.Message)
		return nil
	}
	return errors.Wrapf(ErrProtocolViolation, "unexpected request kind %v", call.Kind)
}

func (d *Delegation) stakeOK(call *pendingCall, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	// rewards accrued so far belong to the stake that was already active
	if err := d.rewards.ComputeAll(); err != nil {
		return err
	}
	if _, err := d.funds.ActivateFinishOK(d.nodesAmount(len(ids))); err != nil {
		return err
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(node.Active) }); err != nil {
		return err
	}
	d.emit(call, events.ActivationOK, ids, "")
	return nil
}

func (d *Delegation) stakeFail(call *pendingCall, ids []uint64, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	hold := d.settings.HoldFailedActivation()
	if _, err := d.funds.ActivateFinishFail(d.nodesAmount(len(ids)), hold); err != nil {
		return err
	}
	status := node.Inactive
	if hold {
		status = node.ActivationFailed
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(status) }); err != nil {
		return err
	}
	d.emit(call, events.ActivationFail, ids, withDefault(msg, "staking failed for some nodes"))
	return nil
}

func (d *Delegation) unstakeOK(call *pendingCall, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	current := d.current()
	if _, err := d.funds.UnstakeFinishOK(d.nodesAmount(len(ids)), current); err != nil {
		return err
	}
	if err := d.setStates(ids, func(int) node.State { return node.UnBondPeriodFrom(current) }); err != nil {
		return err
	}
	d.emit(call, events.DeactivationOK, ids, "")
	return nil
}

func (d *Delegation) unstakeFail(call *pendingCall, ids []uint64, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := d.funds.UnstakeFinishFail(d.nodesAmount(len(ids))); err != nil {
		return err
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(node.Active) }); err != nil {
		return err
	}
	if err := d.rewards.ComputeAll(); err != nil {
		return err
	}
	d.emit(call, events.DeactivationFail, ids, withDefault(msg, "unstaking failed for some nodes"))
	return nil
}

func (d *Delegation) unbondOK(call *pendingCall, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := d.funds.UnbondFinishOK(d.nodesAmount(len(ids)), d.current(), d.settings.NBlocksBeforeClaim()); err != nil {
		return err
	}
	if err := d.setStates(ids, func(int) node.State { return node.StateOf(node.Inactive) }); err != nil {
		return err
	}
	d.emit(call, events.UnbondOK, ids, "")
	return nil
}

func (d *Delegation) unbondFail(call *pendingCall, ids []uint64, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	// every node must still carry its pending marker before anything is reverted
	states := make([]node.State, len(ids))
	for i, id := range ids {
		st, err := d.registry.State(id)
		if err != nil {
			return err
		}
		if st.Status != node.PendingUnBond {
			return errors.Wrapf(ErrProtocolViolation, "node %d is %v, expected %v", id, st, node.PendingUnBond)
		}
		states[i] = st
	}
	if _, err := d.funds.UnbondFinishFail(d.nodesAmount(len(ids))); err != nil {
		return err
	}
	if err := d.setStates(ids, func(i int) node.State { return node.UnBondPeriodFrom(states[i].Started) }); err != nil {
		return err
	}
	d.emit(call, events.UnbondFail, ids, withDefault(msg, "unbonding failed for some nodes"))
	return nil
}

func (d *Delegation) claimOK(call *pendingCall) error {
	if _, err := d.funds.ClaimActivationFailed(d.nodesAmount(len(call.NodeIDs))); err != nil {
		return err
	}
	if err := d.setStates(call.NodeIDs, func(int) node.State { return node.StateOf(node.Inactive) }); err != nil {
		return err
	}
	d.emit(call, events.ClaimOK, call.NodeIDs, "")
	return nil
}

func (d *Delegation) emitResult(call *pendingCall, failed bool, ok, fail events.Kind, msg string) {
	if failed {
		d.emit(call, fail, call.NodeIDs, msg)
		return
	}
	d.emit(call, ok, call.NodeIDs, "")
}

func (d *Delegation) emit(call *pendingCall, kind events.Kind, ids []uint64, msg string) {
	d.events.Emit(&events.Event{
		Kind:      kind,
		RequestID: call.ID,
		NodeIDs:   ids,
		Message:   msg,
		Block:     d.current(),
	})
}

func withDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}
