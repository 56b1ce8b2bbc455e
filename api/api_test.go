// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/api/funds"
	"github.com/vechain/delegator/api/nodes"
	"github.com/vechain/delegator/delegation"
	"github.com/vechain/delegator/delegation/auction"
	"github.com/vechain/delegator/delegation/dispatch"
	devents "github.com/vechain/delegator/delegation/events"
	"github.com/vechain/delegator/delegation/fund"
	"github.com/vechain/delegator/delegation/node"
	"github.com/vechain/delegator/delegation/rewards"
	"github.com/vechain/delegator/delegation/settings"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/lvldb"
	"github.com/vechain/delegator/thor"
)

const owner = "1"

type fixedBlocks uint64

func (b fixedBlocks) BlockNumber() uint64 { return uint64(b) }

type testServer struct {
	t   *testing.T
	url string
	sim *auction.Simulator
}

func newTestServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eventDB, err := devents.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { eventDB.Close() })
	emitter := devents.NewEmitter(eventDB)

	cfg := settings.DefaultConfig()
	cfg.StakePerNode = (*math.HexOrDecimal256)(big.NewInt(100))
	st, err := settings.New(kv.Bucket("s").NewStore(db), cfg)
	require.NoError(t, err)
	ledger := fund.NewLedger(kv.Bucket("f").NewStore(db))

	deleg := delegation.New(kv.Bucket("d").NewStore(db), delegation.Params{
		Registry: node.NewRegistry(kv.Bucket("n").NewStore(db)),
		Funds:    fund.NewEngine(ledger),
		Settings: st,
		Rewards:  rewards.New(kv.Bucket("r").NewStore(db), ledger),
		Events:   emitter,
		Blocks:   fixedBlocks(5),
	})

	var disp *dispatch.Dispatcher
	sim := auction.NewSimulator(func(resp *auction.Response) {
		if _, err := disp.Deliver(context.Background(), resp); err != nil {
			t.Logf("deliver: %v", err)
		}
	})
	disp = dispatch.New(deleg, sim)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		disp.Run(ctx)
		close(done)
	}()

	handler, closer := New(deleg, disp, emitter, Options{AllowedOrigins: "*", EnableMetrics: true, EventsLimit: 100})
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		closer()
		srv.Close()
		sim.Wait()
		cancel()
		<-done
	})
	return &testServer{t: t, url: srv.URL, sim: sim}
}

func (s *testServer) do(method, path, caller string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(s.t, err)
	if caller != "" {
		req.Header.Set("X-Caller", caller)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(s.t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(s.t, err)
	return res.StatusCode, data
}

func (s *testServer) mustDo(method, path, caller string, body, out any) {
	code, data := s.do(method, path, caller, body)
	require.Equal(s.t, http.StatusOK, code, string(data))
	if out != nil {
		require.NoError(s.t, json.Unmarshal(data, out))
	}
}

func blsKey(i byte) thor.BLSKey {
	var k thor.BLSKey
	k[0], k[95] = 0xaa, i
	return k
}

func blsSig(i byte) thor.BLSSignature {
	var s thor.BLSSignature
	s[0], s[47] = 0xbb, i
	return s
}

func amount(v int64) *math.HexOrDecimal256 {
	return (*math.HexOrDecimal256)(big.NewInt(v))
}

func TestStakeFlow(t *testing.T) {
	s := newTestServer(t)

	var added nodes.AddNodesResult
	s.mustDo(http.MethodPost, "/nodes", owner, &nodes.AddNodes{Nodes: []nodes.NewNode{
		{Key: blsKey(1), Signature: blsSig(1)},
		{Key: blsKey(2), Signature: blsSig(2)},
	}}, &added)
	assert.Equal(t, []uint64{1, 2}, added.IDs)

	var position funds.Position
	s.mustDo(http.MethodPost, "/funds/7/deposit", "7", &funds.Amount{Amount: amount(200)}, &position)
	assert.Equal(t, int64(200), (*big.Int)(position.Balances["waiting"]).Int64())

	s.sim.Reject(blsKey(2), "slot taken")
	var result nodes.CommandResult
	s.mustDo(http.MethodPost, "/nodes/stake", owner, &nodes.Keys{Keys: []thor.BLSKey{blsKey(1), blsKey(2)}}, &result)
	require.NotNil(t, result.Request)
	assert.Equal(t, []uint64{1, 2}, result.Request.NodeIDs)

	require.Eventually(t, func() bool {
		var n nodes.Node
		s.mustDo(http.MethodGet, "/nodes/1", "", nil, &n)
		return n.Status == node.Active
	}, 2*time.Second, 10*time.Millisecond)

	var inactive []*nodes.Node
	s.mustDo(http.MethodGet, "/nodes?status=inactive", "", nil, &inactive)
	require.Len(t, inactive, 1)
	assert.Equal(t, uint64(2), inactive[0].ID)

	var evs []*devents.Event
	s.mustDo(http.MethodGet, "/events?kind=activation_fail", "", nil, &evs)
	require.Len(t, evs, 1)
	assert.Equal(t, []uint64{2}, evs[0].NodeIDs)
	assert.Equal(t, "slot taken", evs[0].Message)

	var pool funds.Position
	s.mustDo(http.MethodGet, "/funds", "", nil, &pool)
	assert.Equal(t, int64(100), (*big.Int)(pool.Balances["active"]).Int64())
	assert.Equal(t, int64(100), (*big.Int)(pool.Balances["waiting"]).Int64())

	// a response for a finished request is rejected
	code, _ := s.do(http.MethodPost, "/auction/responses", "", &auction.Response{RequestID: result.Request.ID})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   any
		status int
	}{
		{"missing caller", http.MethodPost, "/nodes/stake", "", &nodes.Keys{}, http.StatusBadRequest},
		{"not owner", http.MethodPost, "/nodes/stake", "5", &nodes.Keys{Keys: []thor.BLSKey{blsKey(1)}}, http.StatusForbidden},
		{"unknown field", http.MethodPost, "/nodes/unbond", "5", map[string]any{"bogus": 1}, http.StatusBadRequest},
		{"unknown node", http.MethodPost, "/nodes/unbond", "5", &nodes.Keys{Keys: []thor.BLSKey{blsKey(9)}}, http.StatusBadRequest},
		{"node not found", http.MethodGet, "/nodes/4", "", nil, http.StatusBadRequest},
		{"bad status", http.MethodGet, "/nodes?status=sleeping", "", nil, http.StatusBadRequest},
		{"withdraw foreign funds", http.MethodPost, "/funds/7/withdraw", "8", &funds.Amount{Amount: amount(1)}, http.StatusForbidden},
		{"withdraw too much", http.MethodPost, "/funds/7/withdraw", "7", &funds.Amount{Amount: amount(1)}, http.StatusBadRequest},
		{"reserved user", http.MethodGet, "/funds/0", "", nil, http.StatusBadRequest},
		{"bad order", http.MethodGet, "/events?order=up", "", nil, http.StatusBadRequest},
		{"bad action", http.MethodPost, "/admin/checkpoint-reset", owner, map[string]string{"action": "pause"}, http.StatusBadRequest},
		{"toggle not owner", http.MethodPost, "/admin/bootstrap", "5", map[string]bool{"enabled": true}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := s.do(tt.method, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, code, string(data))
		})
	}
}

func TestNoopCommand(t *testing.T) {
	s := newTestServer(t)

	code, data := s.do(http.MethodPost, "/nodes/unbond-all", "5", nil)
	require.Equal(t, http.StatusOK, code, string(data))
	assert.JSONEq(t, `{"request":null}`, string(data))

	code, data = s.do(http.MethodPost, "/admin/checkpoint-reset", owner, map[string]string{"action": "start"})
	require.Equal(t, http.StatusNoContent, code, string(data))
	code, data = s.do(http.MethodPost, "/nodes/unbond-all", "5", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(data), "checkpoint is reset")

	var pending map[string]uint64
	s.mustDo(http.MethodGet, "/auction/pending", "", nil, &pending)
	assert.Equal(t, uint64(0), pending["pending"])
}

func TestSubscribe(t *testing.T) {
	s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.url, "http") + "/events/subscribe"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, res.StatusCode)

	s.mustDo(http.MethodPost, "/nodes", owner, &nodes.AddNodes{Nodes: []nodes.NewNode{{Key: blsKey(3), Signature: blsSig(3)}}}, nil)
	s.mustDo(http.MethodPost, "/funds/9/deposit", "9", &funds.Amount{Amount: amount(100)}, nil)
	s.mustDo(http.MethodPost, "/nodes/stake-all", owner, nil, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev devents.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, devents.ActivationOK, ev.Kind)
	assert.Equal(t, []uint64{1}, ev.NodeIDs)
}
