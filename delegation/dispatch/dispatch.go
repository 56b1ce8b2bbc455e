// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dispatch runs every pool mutation on a single goroutine.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/metrics"
)

var (
	logger = log.WithContext("pkg", "dispatch")

	metricQueueWait   = metrics.LazyLoadHistogram("dispatch_queue_wait_ms", metrics.BucketHTTPReqs)
	metricUnconfirmed = metrics.LazyLoadGauge("dispatch_unconfirmed_requests")
)

// ErrStopped is returned for work submitted after the dispatcher stopped.
var ErrStopped = errors.New("dispatcher stopped")

const (
	submitTimeout = 30 * time.Second
	retryInterval = 10 * time.Second
)

// Resolver applies authority responses.
type Resolver interface {
	Resolve(resp *auction.Response) (*delegation.Outcome, error)
}

type job struct {
	run      func() (*auction.Request, error)
	done     chan result
	enqueued time.Time
}

type result struct {
	req *auction.Request
	err error
}

// Dispatcher serializes commands, queries and responses, and forwards the
// requests commands produce to the authority.
type Dispatcher struct {
	resolver      Resolver
	authority     auction.Authority
	jobs          chan *job
	stop          chan struct{}
	goes          sync.WaitGroup
	retryInterval time.Duration

	// submissions the authority may not have received, owned by Run
	unconfirmed map[string]*auction.Request
}

func New(resolver Resolver, authority auction.Authority) *Dispatcher {
	return &Dispatcher{
		resolver:      resolver,
		authority:     authority,
		jobs:          make(chan *job),
		stop:          make(chan struct{}),
		retryInterval: retryInterval,
		unconfirmed:   make(map[string]*auction.Request),
	}
}

// Run processes queued work until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.stop)

	retry := time.NewTicker(d.retryInterval)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := len(d.unconfirmed); n > 0 {
				logger.Warn("stopping with unconfirmed requests", "count", n)
			}
			return
		case <-retry.C:
			d.resubmit(ctx)
		case j := <-d.jobs:
			metricQueueWait().Observe(time.Since(j.enqueued).Milliseconds())
			req, err := j.run()
			if err == nil && req != nil {
				d.submit(ctx, req)
			}
			j.done <- result{req, err}
		}
	}
}

// submit hands req to the authority. A request the authority rejected is
// resolved right away as a failure of the whole batch. When the outcome of
// the submission is unknown the request stays outstanding and is submitted
// again until the authority either takes it or rejects it.
func (d *Dispatcher) submit(ctx context.Context, req *auction.Request) {
	sctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	err := d.authority.Submit(sctx, req)
	switch {
	case err == nil:
		d.confirm(req.ID)
	case errors.Is(err, auction.ErrRejected):
		d.confirm(req.ID)
		logger.Warn("authority rejected request", "id", req.ID, "kind", req.Kind, "err", err)
		if _, rerr := d.resolver.Resolve(&auction.Response{RequestID: req.ID, Error: err.Error()}); rerr != nil {
			logger.Error("failed to resolve rejected request", "id", req.ID, "err", rerr)
		}
	default:
		if _, retrying := d.unconfirmed[req.ID]; !retrying {
			logger.Warn("request submission unconfirmed, will retry", "id", req.ID, "kind", req.Kind, "err", err)
		}
		d.unconfirmed[req.ID] = req
		metricUnconfirmed().Set(int64(len(d.unconfirmed)))
	}
}

func (d *Dispatcher) resubmit(ctx context.Context) {
	for _, req := range d.unconfirmed {
		if ctx.Err() != nil {
			return
		}
		d.submit(ctx, req)
	}
}

// confirm stops retrying the request with id.
func (d *Dispatcher) confirm(id string) {
	if _, ok := d.unconfirmed[id]; !ok {
		return
	}
	delete(d.unconfirmed, id)
	metricUnconfirmed().Set(int64(len(d.unconfirmed)))
}

func (d *Dispatcher) enqueue(ctx context.Context, run func() (*auction.Request, error)) (*auction.Request, error) {
	j := &job{run: run, done: make(chan result, 1), enqueued: time.Now()}
	select {
	case d.jobs <- j:
	case <-d.stop:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	// once accepted the job always completes
	r := <-j.done
	return r.req, r.err
}

// Command runs a mutating command. A returned request has already been
// handed to the authority.
func (d *Dispatcher) Command(ctx context.Context, cmd func() (*auction.Request, error)) (*auction.Request, error) {
	return d.enqueue(ctx, cmd)
}

// Exec runs fn in the mutation stream.
func (d *Dispatcher) Exec(ctx context.Context, fn func() error) error {
	_, err := d.enqueue(ctx, func() (*auction.Request, error) { return nil, fn() })
	return err
}

// Deliver applies an authority response. A response also confirms the
// authority received the request.
func (d *Dispatcher) Deliver(ctx context.Context, resp *auction.Response) (*delegation.Outcome, error) {
	var out *delegation.Outcome
	err := d.Exec(ctx, func() (err error) {
		d.confirm(resp.RequestID)
		out, err = d.resolver.Resolve(resp)
		return err
	})
	return out, err
}

// DeliverAsync applies resp without waiting for the result. Failures are logged.
func (d *Dispatcher) DeliverAsync(resp *auction.Response) {
	d.goes.Go(func() {
		if _, err := d.Deliver(context.Background(), resp); err != nil {
			logger.Warn("failed to apply response", "id", resp.RequestID, "err", err)
		}
	})
}

// Wait blocks until asynchronous deliveries have finished.
func (d *Dispatcher) Wait() {
	d.goes.Wait()
}
