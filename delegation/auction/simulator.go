// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auction

import (
	"context"
	"sync"

	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/thor"
)

var logger = log.WithContext("pkg", "auction")

// DeliverFunc hands a response back to the delegation pool.
type DeliverFunc func(resp *Response)

// Simulator is an in-process authority. It accepts every node unless told
// otherwise and delivers responses from a separate goroutine.
type Simulator struct {
	deliver DeliverFunc

	mu       sync.Mutex
	rejected map[thor.BLSKey]string
	failAll  string
	received []*Request
	goes     sync.WaitGroup
}

func NewSimulator(deliver DeliverFunc) *Simulator {
	return &Simulator{
		deliver:  deliver,
		rejected: make(map[thor.BLSKey]string),
	}
}

// Reject makes the simulator report a failure for key until Accept is called.
func (s *Simulator) Reject(key thor.BLSKey, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[key] = message
}

func (s *Simulator) Accept(key thor.BLSKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rejected, key)
}

// FailAll makes every following call fail as a whole. An empty message restores normal operation.
func (s *Simulator) FailAll(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = message
}

// Respond builds the response the simulator would deliver for req.
func (s *Simulator) Respond(req *Request) *Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := &Response{RequestID: req.ID}
	if s.failAll != "" {
		resp.Error = s.failAll
		return resp
	}
	if !req.Kind.PerNode() {
		return resp
	}
	resp.Statuses = make([]Status, 0, len(req.Keys))
	for _, key := range req.Keys {
		st := Status{Key: key}
		if msg, ok := s.rejected[key]; ok {
			st.Code = 1
			st.Message = msg
		}
		resp.Statuses = append(resp.Statuses, st)
	}
	return resp
}

func (s *Simulator) Submit(_ context.Context, req *Request) error {
	resp := s.Respond(req)

	s.mu.Lock()
	s.received = append(s.received, req)
	s.mu.Unlock()

	logger.Debug("simulated request", "id", req.ID, "kind", req.Kind, "nodes", len(req.Keys))
	s.goes.Go(func() { s.deliver(resp) })
	return nil
}

// Received returns the requests submitted so far.
func (s *Simulator) Received() []*Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Request(nil), s.received...)
}

// Wait blocks until every pending delivery has completed.
func (s *Simulator) Wait() {
	s.goes.Wait()
}
