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
	"bytes"
	"fmt"
	"strings"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func init() {
	kv.RegisterStoreFactory(kv.MemoryVariant, func(kv.Parameters) (kv.PersistentStore, error) {
		return NewStore(), nil
	})
}

// Store is an in-memory kv.Store implementation. Its content is lost when the
// store is closed.
type Store struct {
	data   map[string][]byte
	closed bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: map[string][]byte{}}
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	if s.closed {
		return nil, false, kv.ErrClosed
	}
	value, found := s.data[string(key)]
	if !found {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

func (s *Store) Write(key, value []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	_, existed := s.data[string(key)]
	// Stored values are never nil, so presence survives round trips.
	s.data[string(key)] = append([]byte{}, value...)
	return existed, nil
}

func (s *Store) Remove(key []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	_, existed := s.data[string(key)]
	delete(s.data, string(key))
	return existed, nil
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	if s.closed {
		return kv.ErrClosed
	}
	keys := maps.Keys(s.data)
	slices.Sort(keys)
	for _, key := range keys {
		if !strings.HasPrefix(key, string(prefix)) {
			continue
		}
		if err := callback([]byte(key), s.data[key]); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return len(s.data)
}

// Clone creates an independent copy of the current content of this store.
func (s *Store) Clone() *Store {
	res := NewStore()
	for key, value := range s.data {
		res.data[key] = bytes.Clone(value)
	}
	return res
}

func (s *Store) GetStateHash() (common.Hash, error) {
	return kv.GetStateHash(s, nil)
}

func (s *Store) Flush() error {
	return nil
}

func (s *Store) Close() error {
	s.closed = true
	s.data = nil
	return nil
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	size := unsafe.Sizeof(*s)
	for key, value := range s.data {
		size += uintptr(len(key) + len(value))
	}
	return common.NewMemoryFootprint(size)
}

func (s *Store) String() string {
	return fmt.Sprintf("memory.Store{entries: %d}", len(s.data))
}
