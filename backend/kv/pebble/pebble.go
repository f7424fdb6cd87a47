// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pebble

import (
	"errors"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Database is a kv.Database backed by Pebble.
type Database struct {
	db *pebble.DB
}

// Open opens or creates a Pebble instance in the given directory.
func Open(path string) (*Database, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

// OpenInMemory creates a Pebble instance on an in-memory file system.
func OpenInMemory() (*Database, error) {
	db, err := pebble.Open("db", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, err
	}
	return &Database{db: db}, nil
}

func (d *Database) Get(key []byte) ([]byte, error) {
	value, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	// The returned slice is only valid until the closer is closed.
	res := make([]byte, len(value))
	copy(res, value)
	return res, closer.Close()
}

func (d *Database) Write(ops []kv.Op) error {
	batch := d.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		var err error
		if op.Delete {
			err = batch.Delete(op.Key, nil)
		} else {
			err = batch.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (d *Database) Close() error {
	return d.db.Close()
}
