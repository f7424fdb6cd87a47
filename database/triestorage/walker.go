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

//go:generate mockgen -source walker.go -destination walker_mocks.go -package triestorage

import (
	"github.com/Fantom-foundation/triestore/common"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/ethereum/go-ethereum/triedb/database"
)

// Walker looks up keys in a trie whose nodes are resolved by a Storage.
type Walker interface {
	// Walk returns the value stored for key in the trie with the given root,
	// or nil if there is none. Nodes are read exclusively from storage.
	Walk(storage Storage, root common.Hash, key []byte) ([]byte, error)
}

// MptWalker walks Ethereum style Merkle-Patricia tries. Their nodes are
// addressed by the keccak hash of their RLP encoding.
type MptWalker struct{}

func (MptWalker) Walk(storage Storage, root common.Hash, key []byte) ([]byte, error) {
	t, err := trie.New(trie.TrieID(gethcommon.Hash(root)), NewNodeDatabase(storage))
	if err != nil {
		return nil, err
	}
	return t.Get(key)
}

// NewNodeDatabase exposes a Storage as the node source of go-ethereum tries.
func NewNodeDatabase(storage Storage) database.NodeDatabase {
	return nodeDatabase{storage: storage}
}

type nodeDatabase struct {
	storage Storage
}

func (db nodeDatabase) NodeReader(gethcommon.Hash) (database.NodeReader, error) {
	return db, nil
}

func (db nodeDatabase) Node(_ gethcommon.Hash, _ []byte, hash gethcommon.Hash) ([]byte, error) {
	payload, err := db.storage.Retrieve(common.Hash(hash))
	if err != nil {
		return nil, err
	}
	return payload.ToBytes(), nil
}

// NewTrieChangesFromNodeSet converts the nodes committed by a go-ethereum
// trie into changes inserting each node with a reference count of one.
// Deleted nodes are skipped since they are not addressable by hash.
func NewTrieChangesFromNodeSet(set *trienode.NodeSet) TrieChanges {
	if set == nil {
		return nil
	}
	res := make(TrieChanges, 0, len(set.Nodes))
	for _, node := range set.Nodes {
		if len(node.Blob) == 0 {
			continue
		}
		res = append(res, TrieNodeChange{
			Hash:    common.Hash(node.Hash),
			Payload: node.Blob,
			Rc:      1,
		})
	}
	return res
}
