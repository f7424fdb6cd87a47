// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"testing"
)

func TestLruCache_ExceedCapacity(t *testing.T) {
	c := NewLruCache[int, int](3)

	c.Set(1, 11)
	c.Set(2, 22)

	evictedKey, evictedValue, evicted := c.Set(3, 33)
	if evictedKey != 0 || evictedValue != 0 || evicted {
		t.Errorf("No items should have been evicted yet")
	}

	_, exists := c.Get(1) // one refreshed - first in the list now
	if exists == false {
		t.Errorf("Item should exist")
	}

	evictedKey, evictedValue, evicted = c.Set(5, 44)
	if evictedKey != 2 || evictedValue != 22 || evicted == false {
		t.Errorf("Incorrectly evicted items: %d/%d", evictedKey, evictedValue)
	}
	_, exists = c.Get(2) // 2 is the oldest in the table
	if exists {
		t.Errorf("Item should be evicted")
	}
}

func TestLruCache_Order(t *testing.T) {
	c := NewLruCache[int, int](3)

	c.Set(1, 11)
	c.Set(2, 22)
	c.Set(3, 33)

	_, _ = c.Get(1) // one refreshed - first in the list now
	if c.head.key != 1 {
		t.Errorf("Item should be head")
	}
	if c.tail.key != 2 {
		t.Errorf("Item should be tail")
	}

	c.Set(2, 222) // two refreshed - first in the list now
	if c.head.key != 2 {
		t.Errorf("Item should be head")
	}
	if c.tail.key != 3 {
		t.Errorf("Item should be tail")
	}

	// insert exceeding and check order
	c.Set(4, 44)
	if c.head.key != 4 || c.head.next.key != 2 || c.head.next.next.key != 1 {
		t.Errorf("wrong order")
	}
	if c.tail.key != 1 || c.tail.prev.key != 2 || c.tail.prev.prev.key != 4 {
		t.Errorf("wrong order")
	}
}

func TestLruCache_CapacityOfOneReplacesEntry(t *testing.T) {
	c := NewLruCache[int, int](1)
	c.Set(1, 11)
	if key, value, evicted := c.Set(2, 22); !evicted || key != 1 || value != 11 {
		t.Errorf("unexpected eviction result: %d/%d/%t", key, value, evicted)
	}
	if _, found := c.Get(1); found {
		t.Errorf("evicted entry still present")
	}
	if got, found := c.Get(2); !found || got != 22 {
		t.Errorf("unexpected value, got %d/%t", got, found)
	}
	if c.head != c.tail || c.head.key != 2 {
		t.Errorf("broken list after eviction")
	}
}

func TestLruCache_ZeroCapacityIsRaisedToOne(t *testing.T) {
	c := NewLruCache[int, int](0)
	if got, want := c.Capacity(), 1; got != want {
		t.Errorf("unexpected capacity, wanted %d, got %d", want, got)
	}
	c.Set(1, 1)
	if _, found := c.Get(1); !found {
		t.Errorf("entry should be present")
	}
}

func TestLruCache_Remove(t *testing.T) {
	c := NewLruCache[int, int](3)
	c.Set(1, 11)
	c.Set(2, 22)
	c.Set(3, 33)

	for _, key := range []int{2, 3, 1} {
		val, exists := c.Remove(key)
		if !exists || val != key*11 {
			t.Errorf("failed to remove %d: got %d/%t", key, val, exists)
		}
		if _, exists := c.Get(key); exists {
			t.Errorf("removed key %d still present", key)
		}
	}
	if c.Len() != 0 || c.head != nil || c.tail != nil {
		t.Errorf("cache should be empty")
	}

	if _, exists := c.Remove(7); exists {
		t.Errorf("non-existing key reported as removed")
	}

	// list must remain usable
	c.Set(4, 44)
	c.Set(5, 55)
	if c.head.key != 5 || c.tail.key != 4 {
		t.Errorf("wrong order after re-insertion")
	}
}

func TestLruCache_RemovedEntryIsNotEvicted(t *testing.T) {
	c := NewLruCache[int, int](2)
	c.Set(1, 11)
	c.Set(2, 22)
	c.Remove(1)
	if _, _, evicted := c.Set(3, 33); evicted {
		t.Errorf("free slot should be used before evicting")
	}
	if _, exists := c.Get(2); !exists {
		t.Errorf("entry 2 should still be present")
	}
}

func TestLruCache_Clear(t *testing.T) {
	c := NewLruCache[int, int](3)
	c.Set(1, 11)
	c.Set(2, 22)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("cache should be empty, got %d entries", c.Len())
	}
	if _, exists := c.Get(1); exists {
		t.Errorf("entry should be gone")
	}
	c.Set(3, 33)
	if got, exists := c.Get(3); !exists || got != 33 {
		t.Errorf("cache unusable after clear")
	}
}

func TestLruCache_Iterate(t *testing.T) {
	c := NewLruCache[int, int](5)
	for i := 0; i < 5; i++ {
		c.Set(i, i*10)
	}
	seen := map[int]int{}
	c.Iterate(func(k, v int) bool {
		seen[k] = v
		return true
	})
	if len(seen) != 5 {
		t.Errorf("unexpected number of iterated entries: %d", len(seen))
	}
	for k, v := range seen {
		if v != k*10 {
			t.Errorf("unexpected value for %d: %d", k, v)
		}
	}

	count := 0
	c.Iterate(func(int, int) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("iteration should stop after first element, got %d", count)
	}
}

func TestLruCache_DynamicMemoryFootprint(t *testing.T) {
	c := NewLruCache[int, []byte](4)
	empty := c.GetDynamicMemoryFootprint(func(v []byte) uintptr { return uintptr(len(v)) }).Total()
	c.Set(1, make([]byte, 100))
	full := c.GetDynamicMemoryFootprint(func(v []byte) uintptr { return uintptr(len(v)) }).Total()
	if full <= empty+100 {
		t.Errorf("footprint should grow with content: %d vs %d", empty, full)
	}
}
