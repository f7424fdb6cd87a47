// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import "encoding/binary"

const rcSize = 8

// EncodeValueWithRc appends the reference count to the value as 8 byte
// little-endian integer.
func EncodeValueWithRc(value []byte, rc int64) []byte {
	res := make([]byte, len(value)+rcSize)
	copy(res, value)
	binary.LittleEndian.PutUint64(res[len(value):], uint64(rc))
	return res
}

// DecodeValueWithRc splits a stored value into its payload and reference
// count. A nil payload is returned if the value is too short to hold a
// reference count or if the count is not positive; such entries are
// logically deleted.
func DecodeValueWithRc(raw []byte) ([]byte, int64) {
	if len(raw) < rcSize {
		return nil, 0
	}
	split := len(raw) - rcSize
	rc := int64(binary.LittleEndian.Uint64(raw[split:]))
	if rc <= 0 {
		return nil, rc
	}
	return raw[:split:split], rc
}
