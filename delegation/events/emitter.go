// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/event"

	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/metrics"
)

var (
	logger            = log.WithContext("pkg", "events")
	metricEventsCount = metrics.LazyLoadCounterVec("delegation_events_count", []string{"kind"})
)

const insertTimeout = 5 * time.Second

// Emitter logs, stores and broadcasts events.
type Emitter struct {
	db   *DB
	feed event.Feed
}

// NewEmitter creates an emitter. db may be nil, in which case events are not persisted.
func NewEmitter(db *DB) *Emitter {
	return &Emitter{db: db}
}

func (e *Emitter) Emit(ev *Event) {
	logger.Info("event", "kind", ev.Kind, "request", ev.RequestID, "nodes", ev.NodeIDs, "msg", ev.Message, "block", ev.Block)
	metricEventsCount().AddWithLabel(1, map[string]string{"kind": string(ev.Kind)})

	if e.db != nil {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		err := e.db.Insert(ctx, ev)
		cancel()
		if err != nil {
			logger.Warn("failed to store event", "kind", ev.Kind, "request", ev.RequestID, "err", err)
		}
	}
	e.feed.Send(ev)
}

// Subscribe registers ch to receive every subsequently emitted event.
// Subscribers must drain ch promptly, Emit blocks until every subscriber received the event.
func (e *Emitter) Subscribe(ch chan<- *Event) event.Subscription {
	return e.feed.Subscribe(ch)
}

// Filter queries stored events. It returns nothing when the emitter has no db.
func (e *Emitter) Filter(ctx context.Context, filter *Filter) ([]*Event, error) {
	if e.db == nil {
		return nil, nil
	}
	return e.db.Filter(ctx, filter)
}
