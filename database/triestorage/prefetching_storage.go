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
	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
)

// prefetchingStorage is the view of a shard used by prefetch workers. It
// shares store, shard cache and slots with the CachingStorage that started
// the workers but has no chunk cache and does not count reads. Nodes too
// large for the shard cache are parked in their slot for the execution
// goroutine; the prefetcher drops them again when it is closed.
type prefetchingStorage struct {
	shard      *Shard
	prefetcher *Prefetcher
}

func (s prefetchingStorage) Retrieve(hash common.Hash) (immutable.Bytes, error) {
	shard := s.shard
	for {
		if payload, found := shard.cache.Get(hash); found {
			return payload, nil
		}

		payload, state := shard.slots.ReserveOrJoin(hash)
		switch state {
		case SlotReserved:
			payload, err := shard.readNode(hash)
			if err != nil {
				shard.slots.Release(hash)
				return immutable.Bytes{}, err
			}
			if shard.admit(hash, payload) {
				shard.slots.Release(hash)
			} else {
				shard.slots.Park(hash, payload)
				s.prefetcher.parked(hash)
			}
			shard.tracer.Event(PrefetchSuccess, hash, payload.Len())
			return payload, nil

		case SlotPending:
			if payload, found := shard.slots.WaitFor(hash); found {
				shard.admit(hash, payload)
				return payload, nil
			}

		case SlotDone:
			// Keep the consumed node reachable for the execution goroutine.
			shard.admit(hash, payload)
			return payload, nil
		}
	}
}
