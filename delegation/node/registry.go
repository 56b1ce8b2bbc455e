// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"github.com/pkg/errors"

	"github.com/vechain/delegator/cache"
	"github.com/vechain/delegator/delegation/reverts"
	"github.com/vechain/delegator/kv"
	"github.com/vechain/delegator/log"
	"github.com/vechain/delegator/storage"
	"github.com/vechain/delegator/thor"
)

var logger = log.WithContext("pkg", "node")

var (
	slotNodes    = thor.BytesToBytes32([]byte("nodes"))
	slotKeyIndex = thor.BytesToBytes32([]byte("node-key-index"))
	slotNumNodes = thor.BytesToBytes32([]byte("num-nodes"))
)

const stateCacheSize = 4096

type record struct {
	Key       thor.BLSKey
	Signature thor.BLSSignature
	Status    Status
	Started   uint64
}

// Registry stores node identities and states. Ids are assigned sequentially
// from 1, id 0 means unknown.
type Registry struct {
	nodes    *storage.Mapping[storage.Uint64Key, *record]
	keyIndex *storage.Mapping[thor.BLSKey, uint64]
	numNodes *storage.Var[uint64]
	states   *cache.LRU[uint64, State]
}

func NewRegistry(store kv.Store) *Registry {
	sctx := storage.NewContext(store)
	states, err := cache.NewLRU[uint64, State](stateCacheSize)
	if err != nil {
		panic(err)
	}
	return &Registry{
		nodes:    storage.NewMapping[storage.Uint64Key, *record](sctx, slotNodes),
		keyIndex: storage.NewMapping[thor.BLSKey, uint64](sctx, slotKeyIndex),
		numNodes: storage.NewVar[uint64](sctx, slotNumNodes),
		states:   states,
	}
}

func (r *Registry) NumNodes() (uint64, error) {
	n, _, err := r.numNodes.Get()
	return n, err
}

// Add registers a node as Inactive and returns its id.
func (r *Registry) Add(key thor.BLSKey, sig thor.BLSSignature) (uint64, error) {
	if key.IsZero() {
		return 0, reverts.New("no BLS keys provided")
	}
	existing, err := r.ResolveID(key)
	if err != nil {
		return 0, err
	}
	if existing != 0 {
		return 0, reverts.New("duplicate BLS key")
	}
	n, err := r.NumNodes()
	if err != nil {
		return 0, err
	}
	id := n + 1
	if err := r.nodes.Set(storage.Uint64Key(id), &record{Key: key, Signature: sig}); err != nil {
		return 0, errors.Wrap(err, "failed to set node")
	}
	if err := r.keyIndex.Set(key, id); err != nil {
		return 0, errors.Wrap(err, "failed to index node key")
	}
	if err := r.numNodes.Set(id); err != nil {
		return 0, errors.Wrap(err, "failed to set node count")
	}
	logger.Debug("registered node", "id", id, "key", key.AbbrevString())
	return id, nil
}

// ResolveID returns the id registered for key, or 0.
func (r *Registry) ResolveID(key thor.BLSKey) (uint64, error) {
	id, err := r.keyIndex.Get(key)
	if err != nil {
		return 0, errors.Wrap(err, "failed to resolve node key")
	}
	return id, nil
}

func (r *Registry) get(id uint64) (*record, error) {
	rec, err := r.nodes.Get(storage.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get node")
	}
	if rec == nil {
		return nil, errors.Errorf("unknown node %d", id)
	}
	return rec, nil
}

func (r *Registry) State(id uint64) (State, error) {
	return r.states.GetOrLoad(id, func(id uint64) (State, error) {
		rec, err := r.get(id)
		if err != nil {
			return State{}, err
		}
		return State{Status: rec.Status, Started: rec.Started}, nil
	})
}

func (r *Registry) SetState(id uint64, st State) error {
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if st.Status != UnBondPeriod && st.Status != PendingUnBond {
		st.Started = 0
	}
	rec.Status, rec.Started = st.Status, st.Started
	if err := r.nodes.Set(storage.Uint64Key(id), rec); err != nil {
		r.states.Remove(id)
		return errors.Wrap(err, "failed to set node state")
	}
	r.states.Add(id, st)
	logger.Trace("node state changed", "id", id, "state", st)
	return nil
}

func (r *Registry) Key(id uint64) (thor.BLSKey, error) {
	rec, err := r.get(id)
	if err != nil {
		return thor.BLSKey{}, err
	}
	return rec.Key, nil
}

func (r *Registry) Signature(id uint64) (thor.BLSSignature, error) {
	rec, err := r.get(id)
	if err != nil {
		return thor.BLSSignature{}, err
	}
	return rec.Signature, nil
}

// Node is a registry entry as exposed to queries.
type Node struct {
	ID        uint64
	Key       thor.BLSKey
	Signature thor.BLSSignature
	State     State
}

func (r *Registry) Node(id uint64) (*Node, error) {
	rec, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return &Node{
		ID:        id,
		Key:       rec.Key,
		Signature: rec.Signature,
		State:     State{Status: rec.Status, Started: rec.Started},
	}, nil
}
