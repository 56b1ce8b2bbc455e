// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settings

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vechain/delegator/thor"
)

// Config is the static configuration of the delegation pool.
type Config struct {
	AuctionAddress            thor.Address          `yaml:"auctionAddress"`
	OwnerID                   uint64                `yaml:"ownerID"`
	Operators                 []uint64              `yaml:"operators"`
	StakePerNode              *math.HexOrDecimal256 `yaml:"stakePerNode"`
	BootstrapMode             bool                  `yaml:"bootstrapMode"`
	AutoActivation            bool                  `yaml:"autoActivation"`
	NBlocksBeforeForceUnstake uint64                `yaml:"nBlocksBeforeForceUnstake"`
	NBlocksBeforeUnbond       uint64                `yaml:"nBlocksBeforeUnbond"`
	NBlocksBeforeClaim        uint64                `yaml:"nBlocksBeforeClaim"`
	OwnerMinStakeShare        uint64                `yaml:"ownerMinStakeShare"` // basis points
	HoldFailedActivation      bool                  `yaml:"holdFailedActivation"`
}

const maxShare = 10_000

// DefaultConfig returns a configuration suitable for local runs.
func DefaultConfig() Config {
	spn, _ := new(big.Int).SetString("2500000000000000000000", 10)
	return Config{
		OwnerID:                   1,
		StakePerNode:              (*math.HexOrDecimal256)(spn),
		NBlocksBeforeForceUnstake: 10,
		NBlocksBeforeUnbond:       60,
	}
}

// LoadConfig reads a yaml config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %v", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.OwnerID == 0 {
		return errors.New("ownerID must not be 0, it is reserved for the pool")
	}
	if c.StakePerNode == nil || (*big.Int)(c.StakePerNode).Sign() <= 0 {
		return errors.New("stakePerNode must be positive")
	}
	if c.OwnerMinStakeShare > maxShare {
		return errors.Errorf("ownerMinStakeShare must not exceed %d basis points", maxShare)
	}
	for _, op := range c.Operators {
		if op == 0 {
			return errors.New("operator id 0 is reserved for the pool")
		}
	}
	return nil
}
