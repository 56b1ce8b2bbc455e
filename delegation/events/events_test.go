// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	db, err := NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDBFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	all := []*Event{
		{Kind: ActivationOK, RequestID: "r1", NodeIDs: []uint64{1, 2}, Block: 10},
		{Kind: ActivationFail, RequestID: "r1", NodeIDs: []uint64{3}, Message: "rejected", Block: 10},
		{Kind: DeactivationOK, RequestID: "r2", NodeIDs: []uint64{1}, Block: 20},
		{Kind: UnbondOK, RequestID: "r3", NodeIDs: []uint64{1}, Block: 90},
	}
	for _, ev := range all {
		require.NoError(t, db.Insert(ctx, ev))
	}
	assert.Equal(t, uint64(1), all[0].Seq)
	assert.Equal(t, uint64(4), all[3].Seq)

	tests := []struct {
		name   string
		filter *Filter
		want   []*Event
	}{
		{"nil filter", nil, all},
		{"by kind", &Filter{Kinds: []Kind{ActivationFail, UnbondOK}}, []*Event{all[1], all[3]}},
		{"by request", &Filter{RequestID: "r1"}, all[:2]},
		{"by range", &Filter{Range: &Range{From: 15, To: 50}}, all[2:3]},
		{"open range", &Filter{Range: &Range{From: 20}}, all[2:]},
		{"desc with limit", &Filter{Order: DESC, Options: &Options{Offset: 1, Limit: 2}}, []*Event{all[2], all[1]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Filter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := New(path)
	require.NoError(t, err)
	require.NoError(t, db.Insert(context.Background(), &Event{Kind: ClaimOK, RequestID: "c", NodeIDs: []uint64{4}}))
	require.NoError(t, db.Close())

	db, err = New(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ClaimOK, got[0].Kind)
	assert.Equal(t, path, db.Path())
}

func TestEmitter(t *testing.T) {
	db := newTestDB(t)
	emitter := NewEmitter(db)

	ch := make(chan *Event, 1)
	sub := emitter.Subscribe(ch)
	defer sub.Unsubscribe()

	emitter.Emit(&Event{Kind: UnjailOK, RequestID: "u", NodeIDs: []uint64{9}, Block: 3})

	select {
	case ev := <-ch:
		assert.Equal(t, UnjailOK, ev.Kind)
		assert.Equal(t, uint64(1), ev.Seq)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	stored, err := emitter.Filter(context.Background(), &Filter{Kinds: []Kind{UnjailOK}})
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// without a db events are only broadcast
	bare := NewEmitter(nil)
	bare.Emit(&Event{Kind: ClaimFail})
	stored, err = bare.Filter(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
