// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"testing"

	"github.com/Fantom-foundation/triestore/backend/kv"
)

func TestDatabase_FootprintTracksStoredBytes(t *testing.T) {
	db := New()
	if got := db.GetMemoryFootprint().Total(); got != 0 {
		t.Errorf("empty database should have no footprint, got %d", got)
	}
	if err := db.Write([]kv.Op{{Key: []byte{1, 2}, Value: []byte{3, 4, 5}}}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if got, want := db.GetMemoryFootprint().Total(), uintptr(5); got != want {
		t.Errorf("unexpected footprint, wanted %d, got %d", want, got)
	}
	if err := db.Write([]kv.Op{{Key: []byte{1, 2}, Value: []byte{3}}}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if got, want := db.GetMemoryFootprint().Total(), uintptr(3); got != want {
		t.Errorf("unexpected footprint, wanted %d, got %d", want, got)
	}
	if err := db.Write([]kv.Op{{Key: []byte{1, 2}, Delete: true}}); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if got := db.GetMemoryFootprint().Total(); got != 0 {
		t.Errorf("unexpected footprint after delete, got %d", got)
	}
	if got := db.Len(); got != 0 {
		t.Errorf("unexpected number of keys, got %d", got)
	}
}
