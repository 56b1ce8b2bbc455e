// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsRevertErr(t *testing.T) {
	tests := []struct {
		name         string
		err          any
		revert       bool
		unauthorized bool
	}{
		{"nil", nil, false, false},
		{"not an error", "node must be inactive", false, false},
		{"plain error", errors.New("disk"), false, false},
		{"revert", New("node must be inactive"), true, false},
		{"wrapped revert", pkgerrors.Wrap(New("node not active"), "unstake"), true, false},
		{"unauthorized", NewUnauthorized("only owner allowed to stake nodes"), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.revert, IsRevertErr(tt.err))
			assert.Equal(t, tt.unauthorized, IsUnauthorized(tt.err))
		})
	}
}
