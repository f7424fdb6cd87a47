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
	"sync"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
)

// ShardCache is a bounded LRU cache of trie node payloads shared by all
// storages of one shard. Payloads of MaxCachedValueSize or more bytes are
// never admitted. All methods are safe for concurrent use.
type ShardCache struct {
	cache        *common.LruCache[common.Hash, immutable.Bytes]
	maxValueSize int
	mutex        sync.Mutex
}

// CacheUpdate is a change of a trie node committed to the store. Value is
// the raw value including its reference count, nil for deletions.
type CacheUpdate struct {
	Hash  common.Hash
	Value []byte
}

// NewShardCache creates a cache holding at most capacity entries, each
// smaller than maxValueSize.
func NewShardCache(capacity, maxValueSize int) *ShardCache {
	return &ShardCache{
		cache:        common.NewLruCache[common.Hash, immutable.Bytes](capacity),
		maxValueSize: maxValueSize,
	}
}

func (c *ShardCache) Get(hash common.Hash) (immutable.Bytes, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cache.Get(hash)
}

// Put adds the payload to the cache if it is small enough and reports
// whether it was admitted.
func (c *ShardCache) Put(hash common.Hash, payload immutable.Bytes) bool {
	if !c.admits(payload.Len()) {
		return false
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Set(hash, payload)
	return true
}

func (c *ShardCache) Remove(hash common.Hash) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Remove(hash)
}

func (c *ShardCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Clear()
}

func (c *ShardCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cache.Len()
}

// UpdateCache applies the changes of a committed store update. Live nodes
// small enough are inserted, all other affected entries are evicted.
func (c *ShardCache) UpdateCache(updates []CacheUpdate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, update := range updates {
		var payload []byte
		if update.Value != nil {
			payload, _ = kv.DecodeValueWithRc(update.Value)
		}
		if payload != nil && c.admits(len(payload)) {
			c.cache.Set(update.Hash, immutable.NewBytes(payload))
		} else {
			c.cache.Remove(update.Hash)
		}
	}
}

func (c *ShardCache) admits(size int) bool {
	return size < c.maxValueSize
}

func (c *ShardCache) GetMemoryFootprint() *common.MemoryFootprint {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cache.GetDynamicMemoryFootprint(func(payload immutable.Bytes) uintptr {
		return uintptr(payload.Len())
	})
}
