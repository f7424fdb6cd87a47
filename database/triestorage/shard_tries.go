// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package triestorage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/maps"
)

// ----------------------------------------------------------------------------
//                             Shard
// ----------------------------------------------------------------------------

// Shard bundles the state shared by all storages of one shard: the store,
// the shard cache and the registry of fetches in flight. The cache lock and
// the slot lock are never held at the same time.
type Shard struct {
	uid    common.ShardUId
	store  *kv.Store
	cache  *ShardCache
	slots  *PrefetchSlots
	config Config
	tracer IoTracer
	logger log.Logger
}

func newShard(uid common.ShardUId, store *kv.Store, config Config, tracer IoTracer) *Shard {
	logger := log.New("shard", uid)
	if tracer == nil {
		tracer = NewLogTracer(logger)
	}
	return &Shard{
		uid:    uid,
		store:  store,
		cache:  NewShardCache(config.ShardCacheCapacity, config.MaxCachedValueSize),
		slots:  NewPrefetchSlots(config.PrefetchPollInterval),
		config: config,
		tracer: tracer,
		logger: logger,
	}
}

func (s *Shard) ShardUId() common.ShardUId {
	return s.uid
}

func (s *Shard) Cache() *ShardCache {
	return s.cache
}

// readNode fetches a node from the store, bypassing all caches.
func (s *Shard) readNode(hash common.Hash) (immutable.Bytes, error) {
	key := KeyFromShardUIdAndHash(s.uid, hash)
	value, err := s.store.Get(kv.State, key[:])
	if err != nil {
		return immutable.Bytes{}, fmt.Errorf("%w: %w", ErrStorageInternal, err)
	}
	if value == nil {
		return immutable.Bytes{}, fmt.Errorf("%w: node %v not found in shard %v", ErrInconsistentState, hash, s.uid)
	}
	return immutable.NewBytes(value), nil
}

// admit offers a payload to the shard cache and reports whether it was taken.
func (s *Shard) admit(hash common.Hash, payload immutable.Bytes) bool {
	if s.cache.Put(hash, payload) {
		return true
	}
	s.tracer.Event(ShardCacheTooLarge, hash, payload.Len())
	return false
}

// fetchReserved resolves a slot reserved by the caller. The fetched payload
// is published through the shard cache if admitted, otherwise it is handed
// to the readers waiting on the slot.
func (s *Shard) fetchReserved(hash common.Hash) (immutable.Bytes, error) {
	payload, err := s.readNode(hash)
	if err != nil {
		s.slots.Release(hash)
		return immutable.Bytes{}, err
	}
	if s.admit(hash, payload) {
		s.slots.Release(hash)
	} else {
		s.slots.Complete(hash, payload)
	}
	return payload, nil
}

// ----------------------------------------------------------------------------
//                             ShardTries
// ----------------------------------------------------------------------------

// ShardTries is the registry of the shards of one store. Shards are created
// on first use and live as long as the registry.
type ShardTries struct {
	store  *kv.Store
	config Config
	tracer IoTracer
	shards map[common.ShardUId]*Shard
	mutex  sync.Mutex
}

// NewShardTries creates a registry on top of the given store. If tracer is
// nil, every shard reports I/O events to its own logger.
func NewShardTries(store *kv.Store, config Config, tracer IoTracer) (*ShardTries, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ShardTries{
		store:  store,
		config: config,
		tracer: tracer,
		shards: map[common.ShardUId]*Shard{},
	}, nil
}

func (t *ShardTries) Config() Config {
	return t.config
}

// GetShard returns the shard of the given id, creating it if needed.
func (t *ShardTries) GetShard(uid common.ShardUId) *Shard {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	shard, found := t.shards[uid]
	if !found {
		shard = newShard(uid, t.store, t.config, t.tracer)
		t.shards[uid] = shard
		shard.logger.Debug("Created shard", "cacheCapacity", t.config.ShardCacheCapacity)
	}
	return shard
}

// NewCachingStorage creates a storage for one execution unit in the given shard.
func (t *ShardTries) NewCachingStorage(uid common.ShardUId) *CachingStorage {
	return NewCachingStorage(t.GetShard(uid))
}

// NewRecordingStorage creates a storage recording all nodes it reads.
func (t *ShardTries) NewRecordingStorage(uid common.ShardUId) *RecordingStorage {
	return NewRecordingStorage(t.GetShard(uid))
}

// TrieNodeChange sets the reference count of a node. Nodes with a count of
// zero or less are deleted.
type TrieNodeChange struct {
	Hash    common.Hash
	Payload []byte
	Rc      int64
}

// TrieChanges lists the node changes of one commit.
type TrieChanges []TrieNodeChange

// ApplyChanges writes the given changes to the store in one atomic update and
// afterwards brings the shard cache in line with the written values. Payloads
// of deleted nodes still held by prefetch slots are dropped as well.
func (t *ShardTries) ApplyChanges(uid common.ShardUId, changes TrieChanges) error {
	update := t.store.NewUpdate()
	updates := make([]CacheUpdate, 0, len(changes))
	var deleted []common.Hash
	for _, change := range changes {
		key := KeyFromShardUIdAndHash(uid, change.Hash)
		if change.Rc > 0 {
			raw := kv.EncodeValueWithRc(change.Payload, change.Rc)
			update.SetRaw(kv.State, key[:], raw)
			updates = append(updates, CacheUpdate{Hash: change.Hash, Value: raw})
		} else {
			update.Delete(kv.State, key[:])
			updates = append(updates, CacheUpdate{Hash: change.Hash})
			deleted = append(deleted, change.Hash)
		}
	}
	if err := update.Commit(); err != nil {
		return fmt.Errorf("failed to apply changes to shard %v: %w", uid, err)
	}
	shard := t.GetShard(uid)
	shard.cache.UpdateCache(updates)
	shard.slots.Remove(deleted...)
	shard.logger.Debug("Applied trie changes", "nodes", len(changes))
	return nil
}

// ClearCaches drops the content of all shard caches.
func (t *ShardTries) ClearCaches() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for _, shard := range t.shards {
		shard.cache.Clear()
	}
}

// ShardUIds returns the ids of all shards created so far in ascending order.
func (t *ShardTries) ShardUIds() []common.ShardUId {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	res := maps.Keys(t.shards)
	sort.Slice(res, func(i, j int) bool {
		if res[i].Version != res[j].Version {
			return res[i].Version < res[j].Version
		}
		return res[i].ShardId < res[j].ShardId
	})
	return res
}

func (t *ShardTries) GetMemoryFootprint() *common.MemoryFootprint {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	mf := common.NewMemoryFootprint(0)
	mf.AddChild("store", t.store.GetMemoryFootprint())
	for uid, shard := range t.shards {
		mf.AddChild(uid.String(), shard.cache.GetMemoryFootprint())
	}
	return mf
}

// Close closes the underlying store. Storages of this registry must not be
// used afterwards.
func (t *ShardTries) Close() error {
	return t.store.Close()
}
