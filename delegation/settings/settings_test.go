// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settings

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/lvldb"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
auctionAddress: "0x00000000000000000000000000000000000000a1"
ownerID: 7
operators: [8, 9]
stakePerNode: 1000
autoActivation: true
nBlocksBeforeUnbond: 60
holdFailedActivation: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cfg.OwnerID)
	assert.Equal(t, []uint64{8, 9}, cfg.Operators)
	assert.Equal(t, int64(1000), (*big.Int)(cfg.StakePerNode).Int64())
	assert.Equal(t, "0x00000000000000000000000000000000000000a1", cfg.AuctionAddress.String())
	assert.True(t, cfg.AutoActivation)
	assert.True(t, cfg.HoldFailedActivation)
	// untouched fields keep their defaults
	assert.Equal(t, uint64(10), cfg.NBlocksBeforeForceUnstake)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "ownerID: 1\nbogus: true\n"},
		{"reserved owner", "ownerID: 0\n"},
		{"zero stake", "stakePerNode: 0\n"},
		{"share too large", "ownerMinStakeShare: 10001\n"},
		{"reserved operator", "operators: [0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettings(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	cfg := DefaultConfig()
	cfg.Operators = []uint64{5}
	cfg.BootstrapMode = true
	s, err := New(db, cfg)
	require.NoError(t, err)

	assert.Equal(t, Owner, s.CallerClass(1))
	assert.Equal(t, Permitted, s.CallerClass(5))
	assert.Equal(t, Unauthorized, s.CallerClass(6))

	spn := s.StakePerNode()
	spn.SetInt64(0)
	assert.Positive(t, s.StakePerNode().Sign(), "returned value is a copy")

	on, err := s.IsBootstrapMode()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, s.SetBootstrapMode(false))
	on, err = s.IsBootstrapMode()
	require.NoError(t, err)
	assert.False(t, on)

	// overrides survive a restart
	reopened, err := New(db, cfg)
	require.NoError(t, err)
	on, err = reopened.IsBootstrapMode()
	require.NoError(t, err)
	assert.False(t, on)

	auto, err := reopened.IsAutoActivation()
	require.NoError(t, err)
	assert.False(t, auto)
}
