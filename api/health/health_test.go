// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Status(t *testing.T) {
	h := New(time.Second)

	status := h.Status()
	assert.False(t, status.Healthy)
	assert.Nil(t, status.BlockIngestion.BestBlockIngestionTimestamp)

	h.NewBestBlock(7)
	assert.False(t, h.Status().Healthy, "dispatcher not running")

	h.DispatcherStatus(true)
	status = h.Status()
	assert.True(t, status.Healthy)
	assert.True(t, status.Dispatching)
	assert.Equal(t, uint64(7), status.BlockIngestion.BestBlock)
	require.NotNil(t, status.BlockIngestion.BestBlockIngestionTimestamp)

	h.DispatcherStatus(false)
	assert.False(t, h.Status().Healthy)
}

func TestHealth_StaleBlock(t *testing.T) {
	h := New(time.Millisecond)
	h.DispatcherStatus(true)
	h.NewBestBlock(1)

	h.lock.Lock()
	h.newBestBlock = time.Now().Add(-time.Second)
	h.lock.Unlock()

	assert.False(t, h.Status().Healthy)
}

func TestHealth_API(t *testing.T) {
	h := New(time.Minute)
	router := mux.NewRouter()
	NewAPI(h).Mount(router, "/health")
	srv := httptest.NewServer(router)
	defer srv.Close()

	get := func() (int, *Status) {
		res, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer res.Body.Close()
		var status Status
		require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
		return res.StatusCode, &status
	}

	code, status := get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, status.Healthy)

	h.NewBestBlock(3)
	h.DispatcherStatus(true)
	code, status = get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(3), status.BlockIngestion.BestBlock)
}
