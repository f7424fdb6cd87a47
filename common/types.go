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
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes of a content hash.
const HashSize = 32

// Hash is the keccak-256 digest of a node payload. Two payloads are the same
// content if and only if their hashes are equal.
type Hash [HashSize]byte

// HashFromBytes converts the given slice into a hash. The slice must be
// exactly HashSize bytes long.
func HashFromBytes(data []byte) (Hash, error) {
	var res Hash
	if len(data) != HashSize {
		return res, fmt.Errorf("invalid hash length, wanted %d, got %d", HashSize, len(data))
	}
	copy(res[:], data)
	return res, nil
}

// HashFromString parses a hex encoded hash, with or without 0x prefix.
func HashFromString(str string) (Hash, error) {
	if len(str) >= 2 && str[0] == '0' && (str[1] == 'x' || str[1] == 'X') {
		str = str[2:]
	}
	data, err := hex.DecodeString(str)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hash %q: %w", str, err)
	}
	return HashFromBytes(data)
}

func (h Hash) ToBytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// ShardUIdSize is the number of bytes of a serialized ShardUId.
const ShardUIdSize = 8

// ShardUId identifies a shard of the state trie together with the version of
// the shard layout it belongs to. Each shard has its own key space in the
// persistent store and its own shard cache.
type ShardUId struct {
	Version uint32
	ShardId uint32
}

// ToBytes serializes the shard id as little-endian version followed by the
// little-endian shard number.
func (s ShardUId) ToBytes() [ShardUIdSize]byte {
	var res [ShardUIdSize]byte
	binary.LittleEndian.PutUint32(res[0:4], s.Version)
	binary.LittleEndian.PutUint32(res[4:8], s.ShardId)
	return res
}

// ShardUIdFromBytes is the inverse of ShardUId.ToBytes.
func ShardUIdFromBytes(data []byte) (ShardUId, error) {
	if len(data) != ShardUIdSize {
		return ShardUId{}, fmt.Errorf("invalid shard uid length, wanted %d, got %d", ShardUIdSize, len(data))
	}
	return ShardUId{
		Version: binary.LittleEndian.Uint32(data[0:4]),
		ShardId: binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

func (s ShardUId) String() string {
	return fmt.Sprintf("s%d.v%d", s.ShardId, s.Version)
}

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}
