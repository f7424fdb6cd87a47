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
	"sync"
	"time"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
)

// SlotState is the outcome of PrefetchSlots.ReserveOrJoin.
type SlotState int

const (
	// SlotReserved means the caller registered a pending fetch and is now
	// responsible for resolving it through Complete or Release.
	SlotReserved SlotState = iota
	// SlotPending means another goroutine is fetching the node.
	SlotPending
	// SlotDone means a fetch finished and its result was handed to the caller.
	SlotDone
)

func (s SlotState) String() string {
	switch s {
	case SlotReserved:
		return "Reserved"
	case SlotPending:
		return "Pending"
	case SlotDone:
		return "Done"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

type prefetchSlot struct {
	done    bool
	waiters int
	payload immutable.Bytes
}

// PrefetchSlots tracks fetches in flight to make sure that every node is read
// from the store by at most one goroutine at a time. A slot is either pending
// or done. A completed slot lives until every reader that joined it while
// pending took the payload; a slot parked by a prefetch worker lives until
// one reader consumes it or it is removed.
type PrefetchSlots struct {
	slots        map[common.Hash]prefetchSlot
	pollInterval time.Duration
	mutex        sync.Mutex
}

func NewPrefetchSlots(pollInterval time.Duration) *PrefetchSlots {
	return &PrefetchSlots{
		slots:        map[common.Hash]prefetchSlot{},
		pollInterval: pollInterval,
	}
}

// ReserveOrJoin takes the payload of a done slot, joins a pending one, or
// registers a new pending slot for the caller. A caller joining a pending
// slot must follow up with WaitFor.
func (s *PrefetchSlots) ReserveOrJoin(hash common.Hash) (immutable.Bytes, SlotState) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if slot, found := s.slots[hash]; found {
		if slot.done {
			if slot.waiters == 0 {
				delete(s.slots, hash)
			}
			return slot.payload, SlotDone
		}
		slot.waiters++
		s.slots[hash] = slot
		return immutable.Bytes{}, SlotPending
	}
	s.slots[hash] = prefetchSlot{}
	return immutable.Bytes{}, SlotReserved
}

// Complete hands the result of a fetch reserved by the caller to all readers
// that joined the slot. Without any such reader the slot is dropped. The
// result reports whether the payload was published.
func (s *PrefetchSlots) Complete(hash common.Hash, payload immutable.Bytes) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	slot := s.pending(hash, "completing")
	if slot.waiters == 0 {
		delete(s.slots, hash)
		return false
	}
	s.slots[hash] = prefetchSlot{done: true, waiters: slot.waiters, payload: payload}
	return true
}

// Park publishes the result of a fetch reserved by the caller even if nobody
// joined the slot yet. The slot is kept until a reader consumes it or it is
// removed through Remove.
func (s *PrefetchSlots) Park(hash common.Hash, payload immutable.Bytes) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	slot := s.pending(hash, "parking")
	s.slots[hash] = prefetchSlot{done: true, waiters: slot.waiters, payload: payload}
}

// Release drops a slot reserved by the caller without publishing a result.
// Waiters observe the disappearance and fall back to the shard cache.
func (s *PrefetchSlots) Release(hash common.Hash) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.pending(hash, "releasing")
	delete(s.slots, hash)
}

func (s *PrefetchSlots) pending(hash common.Hash, action string) prefetchSlot {
	slot, found := s.slots[hash]
	if !found || slot.done {
		panic(fmt.Sprintf("%s prefetch slot of %v which is not pending", action, hash))
	}
	return slot
}

// Remove drops the done slots of the given hashes. Pending slots are owned
// by their fetching goroutine and remain untouched.
func (s *PrefetchSlots) Remove(hashes ...common.Hash) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, hash := range hashes {
		if slot, found := s.slots[hash]; found && slot.done {
			delete(s.slots, hash)
		}
	}
}

// WaitFor polls until the slot of the given hash is done, in which case the
// payload is taken and returned, or until the slot disappeared. The last
// waiter taking the payload removes the slot.
func (s *PrefetchSlots) WaitFor(hash common.Hash) (immutable.Bytes, bool) {
	for {
		s.mutex.Lock()
		slot, found := s.slots[hash]
		if !found {
			s.mutex.Unlock()
			return immutable.Bytes{}, false
		}
		if slot.done {
			if slot.waiters <= 1 {
				delete(s.slots, hash)
			} else {
				slot.waiters--
				s.slots[hash] = slot
			}
			s.mutex.Unlock()
			return slot.payload, true
		}
		s.mutex.Unlock()
		time.Sleep(s.pollInterval)
	}
}

// Len returns the number of pending and done slots.
func (s *PrefetchSlots) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.slots)
}
