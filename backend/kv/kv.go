// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

//go:generate mockgen -source kv.go -destination kv_mocks.go -package kv

import (
	"errors"
	"fmt"

	"github.com/Fantom-foundation/triestore/common"
)

// ErrNotFound is reported by Database implementations for absent keys.
const ErrNotFound = common.ConstError("key not found")

// Column divides the key space of a database by prefixing every key with
// the column's identifier.
type Column byte

const (
	// State holds trie nodes keyed by shard uid and node hash. Values carry
	// a trailing reference count.
	State Column = 'S'
	// Misc holds plain values without reference counts.
	Misc Column = 'M'
)

// IsRefCounted reports whether values of this column carry a reference
// count that readers need to strip.
func (c Column) IsRefCounted() bool {
	return c == State
}

func (c Column) String() string {
	switch c {
	case State:
		return "State"
	case Misc:
		return "Misc"
	default:
		return fmt.Sprintf("Column(%d)", byte(c))
	}
}

// toDbKey composes the database key of an entry in the given column.
func toDbKey(c Column, key []byte) []byte {
	res := make([]byte, 1+len(key))
	res[0] = byte(c)
	copy(res[1:], key)
	return res
}

// Database is the key-value engine underlying a Store. Implementations
// must be safe for concurrent use.
type Database interface {
	// Get returns the value stored for the given key or ErrNotFound. The
	// returned slice is owned by the caller.
	Get(key []byte) ([]byte, error)
	// Write applies all the given operations atomically.
	Write(ops []Op) error
	// Close releases all resources of the database.
	Close() error
}

// Op is a single modification within an atomic write.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Store provides column based access to a Database. Reads of reference
// counted columns return the plain payload; values with a non-positive
// reference count are treated as absent.
type Store struct {
	db Database
}

func NewStore(db Database) *Store {
	return &Store{db: db}
}

// Get returns the value of the given key in the given column or nil if there
// is no such value. Errors indicate a failure of the underlying database.
func (s *Store) Get(column Column, key []byte) ([]byte, error) {
	raw, err := s.GetRaw(column, key)
	if err != nil || raw == nil {
		return nil, err
	}
	if !column.IsRefCounted() {
		return raw, nil
	}
	value, _ := DecodeValueWithRc(raw)
	return value, nil
}

// GetRaw returns the value as stored, including a reference count if the
// column has one, or nil if absent.
func (s *Store) GetRaw(column Column, key []byte) ([]byte, error) {
	value, err := s.db.Get(toDbKey(column, key))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %v from %v: %w", key, column, err)
	}
	return value, nil
}

// NewUpdate starts a new batch of modifications to be committed atomically.
func (s *Store) NewUpdate() *StoreUpdate {
	return &StoreUpdate{store: s}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// GetMemoryFootprint reports the footprint of the underlying database if it
// is able to provide one.
func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(0)
	if provider, ok := s.db.(common.MemoryFootprintProvider); ok {
		mf.AddChild("db", provider.GetMemoryFootprint())
	}
	return mf
}

// StoreUpdate collects modifications of a Store. None of them become
// visible before Commit.
type StoreUpdate struct {
	store *Store
	ops   []Op
}

// Set stores a value in a column without reference count.
func (u *StoreUpdate) Set(column Column, key, value []byte) {
	if column.IsRefCounted() {
		panic(fmt.Sprintf("column %v requires a reference count", column))
	}
	u.SetRaw(column, key, value)
}

// SetWithRc stores a value in a reference counted column.
func (u *StoreUpdate) SetWithRc(column Column, key, value []byte, rc int64) {
	if !column.IsRefCounted() {
		panic(fmt.Sprintf("column %v does not support reference counts", column))
	}
	u.SetRaw(column, key, EncodeValueWithRc(value, rc))
}

// SetRaw stores the given bytes as they are.
func (u *StoreUpdate) SetRaw(column Column, key, raw []byte) {
	u.ops = append(u.ops, Op{Key: toDbKey(column, key), Value: raw})
}

func (u *StoreUpdate) Delete(column Column, key []byte) {
	u.ops = append(u.ops, Op{Key: toDbKey(column, key), Delete: true})
}

// Len returns the number of collected modifications.
func (u *StoreUpdate) Len() int {
	return len(u.ops)
}

// Commit atomically applies all collected modifications. The update is
// empty afterwards and may be reused.
func (u *StoreUpdate) Commit() error {
	if len(u.ops) == 0 {
		return nil
	}
	ops := u.ops
	u.ops = nil
	if err := u.store.db.Write(ops); err != nil {
		return fmt.Errorf("failed to commit %d operations: %w", len(ops), err)
	}
	return nil
}
