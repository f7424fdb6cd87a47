// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"errors"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Database is a kv.Database backed by LevelDB.
type Database struct {
	db      *leveldb.DB
	options *opt.Options
}

// Open opens or creates a LevelDB instance in the given directory.
func Open(path string, options *opt.Options) (*Database, error) {
	db, err := leveldb.OpenFile(path, options)
	if err != nil {
		return nil, err
	}
	return &Database{db: db, options: options}, nil
}

// OpenInMemory creates a LevelDB instance without any disk backing.
func OpenInMemory() (*Database, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	value, err := d.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	return value, err
}

func (d *Database) Write(ops []kv.Op) error {
	batch := new(leveldb.Batch)
	for _, op := range ops {
		if op.Delete {
			batch.Delete(op.Key)
		} else {
			batch.Put(op.Key, op.Value)
		}
	}
	return d.db.Write(batch, nil)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// GetMemoryFootprint provides the size of the write buffer of the database.
func (d *Database) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(0)
	mf.AddChild("writeBuffer", common.NewMemoryFootprint(uintptr(d.options.GetWriteBuffer())))
	return mf
}
