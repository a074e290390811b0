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
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

func init() {
	kv.RegisterStoreFactory(kv.LevelDbVariant, func(params kv.Parameters) (kv.PersistentStore, error) {
		return OpenStore(params.Directory, nil)
	})
}

// LevelDB is an interface missing in original LevelDB design.
// It contains methods common for the LevelDB instance and its Transactions,
// allowing a store to operate on either of them.
type LevelDB interface {
	// Get gets the value for the given key. It returns ErrNotFound if the
	// DB does not contain the key.
	Get(key []byte, ro *opt.ReadOptions) (value []byte, err error)

	// Has returns true if the DB does contain the given key.
	Has(key []byte, ro *opt.ReadOptions) (bool, error)

	// NewIterator returns an iterator for the latest snapshot of the
	// underlying DB. The iterator must be released after use.
	NewIterator(slice *util.Range, ro *opt.ReadOptions) iterator.Iterator

	// Put sets the value for the given key.
	Put(key, value []byte, wo *opt.WriteOptions) error

	// Delete deletes the value for the given key.
	Delete(key []byte, wo *opt.WriteOptions) error
}

// Store is a LevelDB backed kv.Store implementation.
type Store struct {
	db     LevelDB
	owned  *leveldb.DB // < set if the store opened the DB and is to close it
	closed bool
}

// OpenStore opens, or creates, a LevelDB database in the given directory.
// Closing the store closes the database.
func OpenStore(directory string, options *opt.Options) (*Store, error) {
	if directory == "" {
		return nil, fmt.Errorf("%w: the LevelDB store requires a directory", kv.UnsupportedConfiguration)
	}
	db, err := leveldb.OpenFile(directory, options)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB in %s; %w", directory, err)
	}
	return &Store{db: db, owned: db}, nil
}

// NewStore creates a store operating on the given database or transaction.
// The caller retains ownership of the database.
func NewStore(db LevelDB) *Store {
	return &Store{db: db}
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	if s.closed {
		return nil, false, kv.ErrClosed
	}
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %x; %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *Store) Write(key, value []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	existed, err := s.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check key %x; %w", key, err)
	}
	if err := s.db.Put(key, value, nil); err != nil {
		return false, fmt.Errorf("failed to write key %x; %w", key, err)
	}
	return existed, nil
}

func (s *Store) Remove(key []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	existed, err := s.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("failed to check key %x; %w", key, err)
	}
	if !existed {
		return false, nil
	}
	if err := s.db.Delete(key, nil); err != nil {
		return false, fmt.Errorf("failed to remove key %x; %w", key, err)
	}
	return true, nil
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	if s.closed {
		return kv.ErrClosed
	}
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := callback(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Flush is a no-op: LevelDB writes every modification to its journal.
func (s *Store) Flush() error {
	return nil
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.owned != nil {
		return s.owned.Close()
	}
	return nil
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	if s.owned != nil && !s.closed {
		var stats leveldb.DBStats
		if err := s.owned.Stats(&stats); err == nil {
			mf.AddChild("blockCache", common.NewMemoryFootprint(uintptr(stats.BlockCacheSize)))
		}
	}
	return mf
}
