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

	"github.com/Fantom-foundation/triestore/common"
)

// KeySize is the length of the key of a trie node in the State column.
const KeySize = common.ShardUIdSize + common.HashSize

// KeyFromShardUIdAndHash composes the store key of a node in the given shard.
func KeyFromShardUIdAndHash(uid common.ShardUId, hash common.Hash) [KeySize]byte {
	var res [KeySize]byte
	prefix := uid.ToBytes()
	copy(res[:], prefix[:])
	copy(res[common.ShardUIdSize:], hash[:])
	return res
}

// ShardUIdAndHashFromKey is the inverse of KeyFromShardUIdAndHash.
func ShardUIdAndHashFromKey(key []byte) (common.ShardUId, common.Hash, error) {
	if len(key) != KeySize {
		return common.ShardUId{}, common.Hash{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	uid, err := common.ShardUIdFromBytes(key[:common.ShardUIdSize])
	if err != nil {
		return common.ShardUId{}, common.Hash{}, err
	}
	var hash common.Hash
	copy(hash[:], key[common.ShardUIdSize:])
	return uid, hash, nil
}
