// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/api/health"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/metrics"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var (
	slotBestBlock = thor.BytesToBytes32([]byte("best-block"))

	metricBlockNumber = metrics.LazyLoadGauge("clock_block_number")
)

// blockClock is the block source of the service. It advances by one block per
// interval and persists the number so unbond and claim delays survive restarts.
type blockClock struct {
	current  atomic.Uint64
	interval time.Duration
	best     *storage.Var[uint64]
	health   *health.Health
}

func newBlockClock(store kv.Store, interval time.Duration, h *health.Health) (*blockClock, error) {
	if interval <= 0 {
		return nil, errors.New("block interval must be positive")
	}
	c := &blockClock{
		interval: interval,
		best:     storage.NewVar[uint64](storage.NewContext(store), slotBestBlock),
		health:   h,
	}
	n, _, err := c.best.Get()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load best block")
	}
	c.current.Store(n)
	h.NewBestBlock(n)
	return c, nil
}

func (c *blockClock) BlockNumber() uint64 {
	return c.current.Load()
}

func (c *blockClock) advance() error {
	n := c.current.Add(1)
	if err := c.best.Set(n); err != nil {
		return errors.Wrap(err, "failed to persist best block")
	}
	c.health.NewBestBlock(n)
	metricBlockNumber().Set(int64(n))
	logger.Trace("new block", "number", n)
	return nil
}

// Run advances the clock until ctx is done.
func (c *blockClock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.advance(); err != nil {
				return err
			}
		}
	}
}
