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
	"sync/atomic"
	"testing"
	"time"

	"github.com/Fantom-foundation/triestore/common/immutable"
)

func TestPrefetchSlots_FirstCallerReservesSlot(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	if _, state := slots.ReserveOrJoin(hashOf("a")); state != SlotReserved {
		t.Errorf("first caller should reserve, got %v", state)
	}
	if _, state := slots.ReserveOrJoin(hashOf("a")); state != SlotPending {
		t.Errorf("second caller should see a pending slot, got %v", state)
	}
	if _, state := slots.ReserveOrJoin(hashOf("b")); state != SlotReserved {
		t.Errorf("slots of other hashes should be independent, got %v", state)
	}
}

func TestPrefetchSlots_ParkedSlotIsConsumedOnce(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	payload := immutable.NewBytes([]byte("a"))
	slots.ReserveOrJoin(hash)
	slots.Park(hash, payload)

	got, state := slots.ReserveOrJoin(hash)
	if state != SlotDone || got != payload {
		t.Errorf("expected done slot with payload, got %v, %v", got, state)
	}
	if got := slots.Len(); got != 0 {
		t.Errorf("consumed slot should be removed, got %d slots", got)
	}
	if _, state := slots.ReserveOrJoin(hash); state != SlotReserved {
		t.Errorf("next caller should reserve anew, got %v", state)
	}
}

func TestPrefetchSlots_CompleteWithoutWaitersDropsSlot(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	slots.ReserveOrJoin(hash)
	if slots.Complete(hash, immutable.NewBytes([]byte("a"))) {
		t.Errorf("payload should not be published without waiters")
	}
	if got := slots.Len(); got != 0 {
		t.Errorf("slot should be dropped, got %d slots", got)
	}
}

func TestPrefetchSlots_RemoveDropsOnlyDoneSlots(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	parked, pending := hashOf("a"), hashOf("b")
	slots.ReserveOrJoin(parked)
	slots.Park(parked, immutable.NewBytes([]byte("a")))
	slots.ReserveOrJoin(pending)

	slots.Remove(parked, pending, hashOf("c"))
	if got := slots.Len(); got != 1 {
		t.Fatalf("only the pending slot should remain, got %d slots", got)
	}
	if _, state := slots.ReserveOrJoin(parked); state != SlotReserved {
		t.Errorf("removed slot should be reserved anew, got %v", state)
	}
	slots.Release(pending)
}

func TestPrefetchSlots_ReleaseRemovesPendingSlot(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	slots.ReserveOrJoin(hash)
	slots.Release(hash)
	if got := slots.Len(); got != 0 {
		t.Errorf("released slot should be removed, got %d slots", got)
	}
}

func TestPrefetchSlots_InvalidTransitionsPanic(t *testing.T) {
	tests := map[string]func(*PrefetchSlots){
		"complete missing": func(s *PrefetchSlots) {
			s.Complete(hashOf("a"), immutable.Bytes{})
		},
		"complete done": func(s *PrefetchSlots) {
			s.ReserveOrJoin(hashOf("a"))
			s.Park(hashOf("a"), immutable.Bytes{})
			s.Complete(hashOf("a"), immutable.Bytes{})
		},
		"park missing": func(s *PrefetchSlots) {
			s.Park(hashOf("a"), immutable.Bytes{})
		},
		"park done": func(s *PrefetchSlots) {
			s.ReserveOrJoin(hashOf("a"))
			s.Park(hashOf("a"), immutable.Bytes{})
			s.Park(hashOf("a"), immutable.Bytes{})
		},
		"release missing": func(s *PrefetchSlots) {
			s.Release(hashOf("a"))
		},
		"release done": func(s *PrefetchSlots) {
			s.ReserveOrJoin(hashOf("a"))
			s.Park(hashOf("a"), immutable.Bytes{})
			s.Release(hashOf("a"))
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected a panic")
				}
			}()
			test(NewPrefetchSlots(time.Microsecond))
		})
	}
}

func TestPrefetchSlots_WaitForReturnsCompletedPayload(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	payload := immutable.NewBytes([]byte("a"))
	slots.ReserveOrJoin(hash)
	if _, state := slots.ReserveOrJoin(hash); state != SlotPending {
		t.Fatalf("second caller should join, got %v", state)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		if !slots.Complete(hash, payload) {
			t.Errorf("payload should be published to the waiter")
		}
	}()

	got, found := slots.WaitFor(hash)
	if !found || got != payload {
		t.Errorf("expected completed payload, got %v, %t", got, found)
	}
	if got := slots.Len(); got != 0 {
		t.Errorf("consumed slot should be removed, got %d slots", got)
	}
}

func TestPrefetchSlots_WaitForReportsReleasedSlot(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	slots.ReserveOrJoin(hash)

	go func() {
		time.Sleep(5 * time.Millisecond)
		slots.Release(hash)
	}()

	if _, found := slots.WaitFor(hash); found {
		t.Errorf("released slot should not produce a payload")
	}
}

func TestPrefetchSlots_WaitForMissingSlotReturnsImmediately(t *testing.T) {
	slots := NewPrefetchSlots(time.Hour)
	if _, found := slots.WaitFor(hashOf("a")); found {
		t.Errorf("missing slot should not produce a payload")
	}
}

func TestPrefetchSlots_CompletedPayloadIsHandedToEveryWaiter(t *testing.T) {
	const N = 16
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	payload := immutable.NewBytes([]byte("a"))
	slots.ReserveOrJoin(hash)
	for i := 0; i < N; i++ {
		if _, state := slots.ReserveOrJoin(hash); state != SlotPending {
			t.Fatalf("caller %d should join, got %v", i, state)
		}
	}

	var received atomic.Int32
	var wg sync.WaitGroup
	wg.Add(N)
	for i := 0; i < N; i++ {
		go func() {
			defer wg.Done()
			if got, found := slots.WaitFor(hash); found {
				if got != payload {
					t.Errorf("unexpected payload %v", got)
				}
				received.Add(1)
			}
		}()
	}
	time.Sleep(5 * time.Millisecond)
	if !slots.Complete(hash, payload) {
		t.Errorf("payload should be published to the waiters")
	}
	wg.Wait()

	if got := received.Load(); got != N {
		t.Errorf("every waiter should receive the payload, got %d of %d", got, N)
	}
	if got := slots.Len(); got != 0 {
		t.Errorf("slot should be removed by the last waiter, got %d slots", got)
	}
}

func TestPrefetchSlots_LateReadersShareACompletedPayload(t *testing.T) {
	slots := NewPrefetchSlots(time.Microsecond)
	hash := hashOf("a")
	payload := immutable.NewBytes([]byte("a"))
	slots.ReserveOrJoin(hash)
	slots.ReserveOrJoin(hash)
	slots.Complete(hash, payload)

	if got, state := slots.ReserveOrJoin(hash); state != SlotDone || got != payload {
		t.Errorf("late reader should get the payload, got %v, %v", got, state)
	}
	if got, found := slots.WaitFor(hash); !found || got != payload {
		t.Errorf("waiter should still get the payload, got %v, %t", got, found)
	}
	if got := slots.Len(); got != 0 {
		t.Errorf("slot should be removed, got %d slots", got)
	}
}
