// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"fmt"
)

// Status is a node's validator lifecycle state.
type Status uint8

const (
	Inactive Status = iota
	PendingActivation
	Active
	PendingDeactivation
	UnBondPeriod
	PendingUnBond
	ActivationFailed
)

var statusNames = [...]string{
	Inactive:            "inactive",
	PendingActivation:   "pending_activation",
	Active:              "active",
	PendingDeactivation: "pending_deactivation",
	UnBondPeriod:        "unbond_period",
	PendingUnBond:       "pending_unbond",
	ActivationFailed:    "activation_failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid node status %d", uint8(s))
	}
	return []byte(statusNames[s]), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a status name as produced by String.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node status %q", name)
}

// IsPending reports whether an authority request is outstanding for the node.
func (s Status) IsPending() bool {
	switch s {
	case PendingActivation, PendingDeactivation, PendingUnBond:
		return true
	}
	return false
}

// State is the node's status plus the unbond period start block, which is set
// for UnBondPeriod and carried unchanged through PendingUnBond.
type State struct {
	Status  Status
	Started uint64
}

func (s State) String() string {
	if s.Status == UnBondPeriod || s.Status == PendingUnBond {
		return fmt.Sprintf("%v{started: %d}", s.Status, s.Started)
	}
	return s.Status.String()
}

func StateOf(status Status) State {
	return State{Status: status}
}

func UnBondPeriodFrom(started uint64) State {
	return State{Status: UnBondPeriod, Started: started}
}

func PendingUnBondFrom(started uint64) State {
	return State{Status: PendingUnBond, Started: started}
}
