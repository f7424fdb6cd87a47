// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package immutable

import (
	"bytes"
	"testing"
)

func TestBytes_EqualWhenContainingSameContent(t *testing.T) {
	b1 := NewBytes([]byte{1, 2, 3})
	b2 := NewBytes([]byte{1, 2, 3})
	b3 := NewBytes([]byte{3, 2, 1})

	if b1 != b2 {
		t.Errorf("instances are not equal, got %v and %v", b1, b2)
	}
	if b1 == b3 {
		t.Errorf("instances are equal, got %v and %v", b1, b3)
	}
}

func TestBytes_SourceModificationsAreNotVisible(t *testing.T) {
	original := []byte{1, 2, 3}
	b := NewBytes(original)
	original[0] = 9

	if got, want := b.ToBytes(), []byte{1, 2, 3}; !bytes.Equal(got, want) {
		t.Errorf("content was modified, got %v, want %v", got, want)
	}
}

func TestBytes_ExportedCopiesAreIndependent(t *testing.T) {
	b := NewBytes([]byte{1, 2, 3})
	copy := b.ToBytes()
	copy[0] = 9
	if got, want := b.ToBytes(), []byte{1, 2, 3}; !bytes.Equal(got, want) {
		t.Errorf("content was modified, got %v, want %v", got, want)
	}
}

func TestBytes_LenAndString(t *testing.T) {
	b := NewBytes([]byte{1, 2, 3})
	if got, want := b.Len(), 3; got != want {
		t.Errorf("unexpected length, got %d, want %d", got, want)
	}
	if got, want := b.String(), "0x010203"; got != want {
		t.Errorf("unexpected string, got %v, want %v", got, want)
	}
	if got := (Bytes{}).Len(); got != 0 {
		t.Errorf("zero value should be empty, got %d", got)
	}
}
