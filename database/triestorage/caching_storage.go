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
	"errors"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
)

// CachingStorage is the storage used for executing one unit of work, e.g.
// one chunk, against a shard. It resolves nodes through its chunk cache, the
// shard cache, fetches in flight of other goroutines, and finally the store,
// counting each read by origin.
//
// A CachingStorage is owned by a single goroutine. Only the shard cache and
// the prefetch slots are shared with prefetch workers and other storages.
type CachingStorage struct {
	shard       *Shard
	chunkCache  map[common.Hash]immutable.Bytes
	mode        CacheMode
	counts      TrieNodesCount
	prefetchers []*Prefetcher
}

func NewCachingStorage(shard *Shard) *CachingStorage {
	return &CachingStorage{
		shard:      shard,
		chunkCache: map[common.Hash]immutable.Bytes{},
		mode:       CacheModeShard,
	}
}

func (s *CachingStorage) Retrieve(hash common.Hash) (immutable.Bytes, error) {
	if payload, found := s.chunkCache[hash]; found {
		s.counts.MemReads++
		return payload, nil
	}

	payload, err := s.retrieveFromShard(hash)
	if err != nil {
		return immutable.Bytes{}, err
	}

	s.counts.DbReads++
	if s.mode == CacheModeChunk {
		s.chunkCache[hash] = payload
	}
	return payload, nil
}

func (s *CachingStorage) retrieveFromShard(hash common.Hash) (immutable.Bytes, error) {
	shard := s.shard
	for {
		if payload, found := shard.cache.Get(hash); found {
			shard.tracer.Event(ShardCacheHit, hash, payload.Len())
			return payload, nil
		}
		shard.tracer.Event(ShardCacheMiss, hash, 0)

		payload, state := shard.slots.ReserveOrJoin(hash)
		switch state {
		case SlotDone:
			shard.tracer.Event(PrefetchHit, hash, payload.Len())
			shard.admit(hash, payload)
			return payload, nil

		case SlotPending:
			shard.tracer.Event(PrefetchPending, hash, 0)
			if payload, found := shard.slots.WaitFor(hash); found {
				shard.tracer.Event(PrefetchHit, hash, payload.Len())
				shard.admit(hash, payload)
				return payload, nil
			}
			// The node was published through the shard cache or the fetch
			// failed; start over.

		case SlotReserved:
			// The node may have been added to the cache after the lookup above.
			if payload, found := shard.cache.Get(hash); found {
				shard.slots.Release(hash)
				shard.tracer.Event(ShardCacheHit, hash, payload.Len())
				return payload, nil
			}
			return shard.fetchReserved(hash)
		}
	}
}

// SetMode switches between caching all nodes read in the chunk cache and
// relying on the shard cache only. Nodes cached so far are retained.
func (s *CachingStorage) SetMode(mode CacheMode) {
	s.mode = mode
}

func (s *CachingStorage) Mode() CacheMode {
	return s.mode
}

func (s *CachingStorage) TrieNodesCount() TrieNodesCount {
	return s.counts
}

// ShardUId returns the id of the shard this storage reads from.
func (s *CachingStorage) ShardUId() common.ShardUId {
	return s.shard.uid
}

// StartPrefetcher starts workers resolving keys of the trie with the given
// root. The prefetcher is stopped by Close at the latest.
func (s *CachingStorage) StartPrefetcher(root common.Hash, walker Walker) *Prefetcher {
	prefetcher := startPrefetcher(s.shard, root, walker, s.shard.config.PrefetchWorkers)
	s.prefetchers = append(s.prefetchers, prefetcher)
	return prefetcher
}

// Close stops all prefetchers started by this storage and waits for their
// workers to finish.
func (s *CachingStorage) Close() error {
	var errs []error
	for _, prefetcher := range s.prefetchers {
		errs = append(errs, prefetcher.Close())
	}
	s.prefetchers = nil
	return errors.Join(errs...)
}
