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
	"sort"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
	"golang.org/x/exp/maps"
)

// PartialStorage serves nodes exclusively from a recorded PartialState and
// tracks which of them were used.
type PartialStorage struct {
	nodes   map[common.Hash]immutable.Bytes
	visited map[common.Hash]struct{}
}

func NewPartialStorage(state PartialState) *PartialStorage {
	nodes := make(map[common.Hash]immutable.Bytes, len(state.Nodes))
	for _, node := range state.Nodes {
		nodes[common.Keccak256(node)] = immutable.NewBytes(node)
	}
	return &PartialStorage{
		nodes:   nodes,
		visited: map[common.Hash]struct{}{},
	}
}

func (s *PartialStorage) Retrieve(hash common.Hash) (immutable.Bytes, error) {
	payload, found := s.nodes[hash]
	if !found {
		return immutable.Bytes{}, fmt.Errorf("%w: %v", ErrTrieNodeMissing, hash)
	}
	s.visited[hash] = struct{}{}
	return payload, nil
}

// VisitedNodes returns the hashes of all nodes retrieved so far.
func (s *PartialStorage) VisitedNodes() []common.Hash {
	return sortedHashes(maps.Keys(s.visited))
}

// UnusedNodes returns the hashes of all nodes never retrieved.
func (s *PartialStorage) UnusedNodes() []common.Hash {
	res := []common.Hash{}
	for hash := range s.nodes {
		if _, found := s.visited[hash]; !found {
			res = append(res, hash)
		}
	}
	return sortedHashes(res)
}

// Usage compares the number of recorded nodes to the number of used ones.
func (s *PartialStorage) Usage() NodeUsage {
	return NodeUsage{Recorded: len(s.nodes), Visited: len(s.visited)}
}

// NodeUsage summarizes how much of a partial state was needed.
type NodeUsage struct {
	Recorded int
	Visited  int
}

// Unused is the number of recorded nodes never retrieved.
func (u NodeUsage) Unused() int {
	return u.Recorded - u.Visited
}

func (u NodeUsage) String() string {
	return fmt.Sprintf("%d of %d nodes visited, %d unused", u.Visited, u.Recorded, u.Unused())
}

func sortedHashes(hashes []common.Hash) []common.Hash {
	sort.Slice(hashes, func(i, j int) bool {
		return string(hashes[i][:]) < string(hashes[j][:])
	})
	return hashes
}
