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
	"github.com/Fantom-foundation/triestore/common/immutable"
)

// Storage resolves the hash of a trie node to the node's payload.
type Storage interface {
	// Retrieve returns the payload of the node with the given hash. Errors
	// wrap ErrStorageInternal, ErrInconsistentState or ErrTrieNodeMissing.
	Retrieve(hash common.Hash) (immutable.Bytes, error)
}

// NodeCounter is implemented by storages accounting for the origin of the
// nodes they serve.
type NodeCounter interface {
	TrieNodesCount() TrieNodesCount
}

// TrieNodesCount counts node reads by origin. Reads served by the store or a
// shard cache are DbReads, reads served by the chunk cache are MemReads.
type TrieNodesCount struct {
	DbReads  uint64
	MemReads uint64
}

// Sub computes the reads performed since the given earlier snapshot.
func (c TrieNodesCount) Sub(other TrieNodesCount) TrieNodesCount {
	if c.DbReads < other.DbReads || c.MemReads < other.MemReads {
		panic(fmt.Sprintf("subtracting %v from smaller count %v", other, c))
	}
	return TrieNodesCount{
		DbReads:  c.DbReads - other.DbReads,
		MemReads: c.MemReads - other.MemReads,
	}
}

func (c TrieNodesCount) String() string {
	return fmt.Sprintf("db reads: %d, mem reads: %d", c.DbReads, c.MemReads)
}

// CacheMode controls whether a CachingStorage retains the nodes it read for
// the rest of its lifetime.
type CacheMode int

const (
	// CacheModeShard relies on the shard cache only.
	CacheModeShard CacheMode = iota
	// CacheModeChunk additionally keeps every node read in the chunk cache.
	CacheModeChunk
)

func (m CacheMode) String() string {
	switch m {
	case CacheModeShard:
		return "Shard"
	case CacheModeChunk:
		return "Chunk"
	default:
		return fmt.Sprintf("CacheMode(%d)", int(m))
	}
}

func AsCachingStorage(storage Storage) (*CachingStorage, bool) {
	res, ok := storage.(*CachingStorage)
	return res, ok
}

func AsRecordingStorage(storage Storage) (*RecordingStorage, bool) {
	res, ok := storage.(*RecordingStorage)
	return res, ok
}

func AsPartialStorage(storage Storage) (*PartialStorage, bool) {
	res, ok := storage.(*PartialStorage)
	return res, ok
}
