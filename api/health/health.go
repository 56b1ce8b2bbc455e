// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"
)

// staleBlocks is the number of missed block intervals after which the service
// is reported unhealthy.
const staleBlocks = 3

type BlockIngestion struct {
	BestBlock                   uint64     `json:"bestBlock"`
	BestBlockIngestionTimestamp *time.Time `json:"bestBlockIngestionTimestamp"`
}

type Status struct {
	Healthy        bool            `json:"healthy"`
	BlockIngestion *BlockIngestion `json:"blockIngestion"`
	Dispatching    bool            `json:"dispatching"`
}

// Health tracks block progress and dispatcher liveness.
type Health struct {
	lock          sync.RWMutex
	blockInterval time.Duration
	newBestBlock  time.Time
	bestBlock     uint64
	dispatching   bool
}

func New(blockInterval time.Duration) *Health {
	return &Health{blockInterval: blockInterval}
}

func (h *Health) NewBestBlock(num uint64) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.newBestBlock = time.Now()
	h.bestBlock = num
}

func (h *Health) DispatcherStatus(running bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.dispatching = running
}

func (h *Health) Status() *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	blockIngest := &BlockIngestion{
		BestBlock: h.bestBlock,
	}
	if !h.newBestBlock.IsZero() {
		ts := h.newBestBlock
		blockIngest.BestBlockIngestionTimestamp = &ts
	}

	healthy := h.dispatching &&
		!h.newBestBlock.IsZero() &&
		time.Since(h.newBestBlock) <= staleBlocks*h.blockInterval

	return &Status{
		Healthy:        healthy,
		BlockIngestion: blockIngest,
		Dispatching:    h.dispatching,
	}
}
