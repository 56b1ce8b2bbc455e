// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settings

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var logger = log.WithContext("pkg", "settings")

// CallerClass is the authorization class of a caller.
type CallerClass uint8

const (
	Unauthorized CallerClass = iota
	Permitted
	Owner
)

func (c CallerClass) String() string {
	switch c {
	case Owner:
		return "owner"
	case Permitted:
		return "permitted"
	default:
		return "unauthorized"
	}
}

// modeFlag is a boolean mode whose config value can be overridden at runtime.
type modeFlag struct {
	name     string
	def      bool
	override *storage.Var[bool]
}

func newModeFlag(sctx *storage.Context, name string, def bool) *modeFlag {
	return &modeFlag{
		name:     name,
		def:      def,
		override: storage.NewVar[bool](sctx, thor.BytesToBytes32([]byte(name))),
	}
}

func (f *modeFlag) Get() (bool, error) {
	v, ok, err := f.override.Get()
	if err != nil {
		return false, errors.Wrapf(err, "failed to read %v", f.name)
	}
	if !ok {
		return f.def, nil
	}
	return v, nil
}

func (f *modeFlag) Set(v bool) error {
	if err := f.override.Set(v); err != nil {
		return errors.Wrapf(err, "failed to set %v", f.name)
	}
	logger.Info("mode changed", "mode", f.name, "value", v)
	return nil
}

// Settings answers configuration lookups for the delegation pool.
type Settings struct {
	cfg            Config
	operators      map[uint64]struct{}
	bootstrap      *modeFlag
	autoActivation *modeFlag
}

func New(store kv.Store, cfg Config) (*Settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sctx := storage.NewContext(store)
	operators := make(map[uint64]struct{}, len(cfg.Operators))
	for _, op := range cfg.Operators {
		operators[op] = struct{}{}
	}
	return &Settings{
		cfg:            cfg,
		operators:      operators,
		bootstrap:      newModeFlag(sctx, "bootstrap-mode", cfg.BootstrapMode),
		autoActivation: newModeFlag(sctx, "auto-activation", cfg.AutoActivation),
	}, nil
}

func (s *Settings) AuctionAddress() thor.Address { return s.cfg.AuctionAddress }

func (s *Settings) OwnerID() uint64 { return s.cfg.OwnerID }

// StakePerNode returns a copy of the stake required to run one node.
func (s *Settings) StakePerNode() *big.Int {
	return new(big.Int).Set((*big.Int)(s.cfg.StakePerNode))
}

func (s *Settings) CallerClass(caller uint64) CallerClass {
	if caller == s.cfg.OwnerID {
		return Owner
	}
	if _, ok := s.operators[caller]; ok {
		return Permitted
	}
	return Unauthorized
}

func (s *Settings) IsBootstrapMode() (bool, error)    { return s.bootstrap.Get() }
func (s *Settings) SetBootstrapMode(on bool) error    { return s.bootstrap.Set(on) }
func (s *Settings) IsAutoActivation() (bool, error)   { return s.autoActivation.Get() }
func (s *Settings) SetAutoActivation(on bool) error   { return s.autoActivation.Set(on) }
func (s *Settings) NBlocksBeforeForceUnstake() uint64 { return s.cfg.NBlocksBeforeForceUnstake }
func (s *Settings) NBlocksBeforeUnbond() uint64       { return s.cfg.NBlocksBeforeUnbond }
func (s *Settings) NBlocksBeforeClaim() uint64        { return s.cfg.NBlocksBeforeClaim }
func (s *Settings) OwnerMinStakeShare() uint64        { return s.cfg.OwnerMinStakeShare }
func (s *Settings) HoldFailedActivation() bool        { return s.cfg.HoldFailedActivation }
