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
	"io"

	"github.com/Fantom-foundation/triestore/common"
	"github.com/Fantom-foundation/triestore/common/immutable"
	"github.com/ethereum/go-ethereum/rlp"
)

// PartialState is the set of node payloads recorded during one session. It
// is self-contained: the hash of each node is the keccak hash of its payload.
type PartialState struct {
	Nodes [][]byte
}

// Len returns the number of recorded nodes.
func (s PartialState) Len() int {
	return len(s.Nodes)
}

// EncodeTo writes the RLP encoding of the state to the given writer.
func (s PartialState) EncodeTo(w io.Writer) error {
	return rlp.Encode(w, s)
}

// DecodePartialState parses the RLP encoding produced by EncodeTo.
func DecodePartialState(data []byte) (PartialState, error) {
	var res PartialState
	if err := rlp.DecodeBytes(data, &res); err != nil {
		return PartialState{}, fmt.Errorf("invalid partial state encoding: %w", err)
	}
	return res, nil
}

// RecordingStorage reads nodes from the store, bypassing all caches, and
// remembers every distinct node it served.
type RecordingStorage struct {
	shard    *Shard
	recorded map[common.Hash]immutable.Bytes
	order    []common.Hash
}

func NewRecordingStorage(shard *Shard) *RecordingStorage {
	return &RecordingStorage{
		shard:    shard,
		recorded: map[common.Hash]immutable.Bytes{},
	}
}

func (s *RecordingStorage) Retrieve(hash common.Hash) (immutable.Bytes, error) {
	if payload, found := s.recorded[hash]; found {
		return payload, nil
	}
	payload, err := s.shard.readNode(hash)
	if err != nil {
		return immutable.Bytes{}, err
	}
	s.recorded[hash] = payload
	s.order = append(s.order, hash)
	return payload, nil
}

// Len returns the number of distinct nodes recorded so far.
func (s *RecordingStorage) Len() int {
	return len(s.order)
}

// RecordedStorage returns the recorded nodes in the order they were first read.
func (s *RecordingStorage) RecordedStorage() PartialState {
	nodes := make([][]byte, 0, len(s.order))
	for _, hash := range s.order {
		nodes = append(nodes, s.recorded[hash].ToBytes())
	}
	return PartialState{Nodes: nodes}
}
