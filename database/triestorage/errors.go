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

import "github.com/Fantom-foundation/triestore/common"

const (
	// ErrStorageInternal signals an unexpected failure of the persistent
	// store. It is not retried by this package.
	ErrStorageInternal = common.ConstError("storage internal error")

	// ErrInconsistentState signals that a node reachable from a valid trie
	// root is absent in the persistent store.
	ErrInconsistentState = common.ConstError("storage inconsistent state")

	// ErrTrieNodeMissing is reported by partial storages for nodes not
	// covered by the recorded state. It indicates an insufficient proof.
	ErrTrieNodeMissing = common.ConstError("trie node missing")

	// ErrInvalidKey is reported when decoding a store key of wrong length.
	ErrInvalidKey = common.ConstError("invalid trie node key")
)
