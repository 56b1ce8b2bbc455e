// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
)

// Class separates authorization failures from precondition failures.
type Class uint8

const (
	Precondition Class = iota
	Unauthorized
)

// ErrRevert is a business rule rejection. A command that returns one has not
// mutated any state.
type ErrRevert struct {
	message string
	class   Class
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
	}
}

func NewUnauthorized(message string) *ErrRevert {
	return &ErrRevert{
		message: message,
		class:   Unauthorized,
	}
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Class() Class {
	return e.class
}

func IsRevertErr(err any) bool {
	_, ok := asRevert(err)
	return ok
}

// IsUnauthorized reports whether err is a revert raised by an authorization check.
func IsUnauthorized(err any) bool {
	e, ok := asRevert(err)
	return ok && e.class == Unauthorized
}

func asRevert(err any) (*ErrRevert, bool) {
	e, ok := err.(error)
	if !ok || e == nil {
		return nil, false
	}
	var ve *ErrRevert
	if errors.As(e, &ve) {
		return ve, true
	}
	return nil, false
}
