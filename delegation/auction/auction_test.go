// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auction

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vechain/delegator/thor"
)

func key(b byte) thor.BLSKey {
	var k thor.BLSKey
	k[0] = b
	return k
}

func TestKindText(t *testing.T) {
	for kind := Stake; kind <= UnJail; kind++ {
		text, err := kind.MarshalText()
		require.NoError(t, err)
		var decoded Kind
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, kind, decoded)
	}
	_, err := Kind(0).MarshalText()
	assert.Error(t, err)

	var k Kind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
	assert.True(t, Stake.PerNode())
	assert.False(t, Claim.PerNode())
}

func TestSimulator(t *testing.T) {
	var (
		mu        sync.Mutex
		delivered []*Response
	)
	sim := NewSimulator(func(resp *Response) {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, resp)
	})
	sim.Reject(key(2), "rejected")

	req := &Request{ID: "a", Kind: Stake, Keys: []thor.BLSKey{key(1), key(2), key(3)}}
	require.NoError(t, sim.Submit(context.Background(), req))
	sim.Wait()

	require.Len(t, delivered, 1)
	resp := delivered[0]
	assert.Equal(t, "a", resp.RequestID)
	require.Len(t, resp.Statuses, 3)
	assert.True(t, resp.Statuses[0].OK())
	assert.False(t, resp.Statuses[1].OK())
	assert.Equal(t, "rejected", resp.Statuses[1].Message)
	assert.True(t, resp.Statuses[2].OK())

	sim.Accept(key(2))
	assert.True(t, sim.Respond(req).Statuses[1].OK())

	sim.FailAll("authority down")
	failed := sim.Respond(req)
	assert.True(t, failed.Failed())
	assert.Empty(t, failed.Statuses)

	sim.FailAll("")
	claim := sim.Respond(&Request{ID: "c", Kind: Claim})
	assert.False(t, claim.Failed())
	assert.Empty(t, claim.Statuses)

	assert.Len(t, sim.Received(), 1)
}

func TestClient(t *testing.T) {
	var got Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/requests", r.URL.Path)
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got.Kind == UnJail {
			http.Error(w, "not supported", http.StatusNotImplemented)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	req := &Request{ID: "x", Kind: Stake, NodeIDs: []uint64{1}, Keys: []thor.BLSKey{key(1)}, Amount: big.NewInt(100), Block: 7}
	require.NoError(t, client.Submit(context.Background(), req))
	assert.Equal(t, *req, got)

	err := client.Submit(context.Background(), &Request{ID: "y", Kind: UnJail})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestClientUnconfirmedSubmission(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := NewClient(srv.URL).Submit(ctx, &Request{ID: "slow", Kind: Stake})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRejected)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewClient(url).Submit(context.Background(), &Request{ID: "z", Kind: Stake})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
}
