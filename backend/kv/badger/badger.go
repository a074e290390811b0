// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package badger

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	badgerdb "github.com/dgraph-io/badger/v4"
)

func init() {
	kv.RegisterStoreFactory(kv.BadgerVariant, func(params kv.Parameters) (kv.PersistentStore, error) {
		return OpenStore(params.Directory)
	})
}

// tableSpace is prepended to all keys since BadgerDB rejects empty keys, which
// are valid in a kv.Store.
const tableSpace = 'K'

// Store is a BadgerDB backed kv.Store implementation.
type Store struct {
	db *badgerdb.DB
}

// OpenStore opens, or creates, a BadgerDB database in the given directory.
// If the directory is empty, a purely in-memory database is created.
func OpenStore(directory string) (*Store, error) {
	opts := badgerdb.DefaultOptions(directory).WithLogger(nil)
	if directory == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB in %q; %w", directory, err)
	}
	return &Store{db: db}, nil
}

func toDbKey(key []byte) []byte {
	res := make([]byte, 0, len(key)+1)
	res = append(res, tableSpace)
	return append(res, key...)
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, kv.ErrClosed
	}
	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(toDbKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
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
	if s.db == nil {
		return false, kv.ErrClosed
	}
	existed := false
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		dbKey := toDbKey(key)
		_, err := txn.Get(dbKey)
		if err == nil {
			existed = true
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}
		// Badger retains the given slices until the transaction commits.
		return txn.Set(dbKey, append([]byte{}, value...))
	})
	if err != nil {
		return false, fmt.Errorf("failed to write key %x; %w", key, err)
	}
	return existed, nil
}

func (s *Store) Remove(key []byte) (bool, error) {
	if s.db == nil {
		return false, kv.ErrClosed
	}
	existed := false
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		dbKey := toDbKey(key)
		_, err := txn.Get(dbKey)
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		existed = true
		return txn.Delete(dbKey)
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove key %x; %w", key, err)
	}
	return existed, nil
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	if s.db == nil {
		return kv.ErrClosed
	}
	return s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = toDbKey(prefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			err := item.Value(func(value []byte) error {
				return callback(item.Key()[1:], value)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Flush syncs the database files to disk.
func (s *Store) Flush() error {
	if s.db == nil {
		return kv.ErrClosed
	}
	if s.db.Opts().InMemory {
		return nil
	}
	return s.db.Sync()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	if s.db != nil {
		lsm, vlog := s.db.Size()
		mf.AddChild("lsm", common.NewMemoryFootprint(uintptr(lsm)))
		mf.AddChild("vlog", common.NewMemoryFootprint(uintptr(vlog)))
	}
	return mf
}
