// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"sync"

	"github.com/Fantom-foundation/triestore/backend/kv"
	"github.com/Fantom-foundation/triestore/common"
)

// Database is an in-memory kv.Database.
type Database struct {
	data  map[string][]byte
	size  uintptr
	mutex sync.RWMutex
}

func New() *Database {
	return &Database{data: map[string][]byte{}}
}

func (d *Database) Get(key []byte) ([]byte, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	value, found := d.data[string(key)]
	if !found {
		return nil, kv.ErrNotFound
	}
	res := make([]byte, len(value))
	copy(res, value)
	return res, nil
}

func (d *Database) Write(ops []kv.Op) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for _, op := range ops {
		key := string(op.Key)
		if old, found := d.data[key]; found {
			d.size -= uintptr(len(key) + len(old))
			delete(d.data, key)
		}
		if !op.Delete {
			value := make([]byte, len(op.Value))
			copy(value, op.Value)
			d.data[key] = value
			d.size += uintptr(len(key) + len(value))
		}
	}
	return nil
}

// Len returns the number of stored keys.
func (d *Database) Len() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.data)
}

func (d *Database) Close() error {
	return nil
}

func (d *Database) GetMemoryFootprint() *common.MemoryFootprint {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return common.NewMemoryFootprint(d.size)
}
