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

import (
	"bytes"
	"unsafe"

	"github.com/Fantom-foundation/Stash/common"
)

// CachedStore wraps a PersistentStore with a read-through LRU cache. Both
// present values and confirmed absences are cached. Modifications are
// written through to the wrapped store immediately.
//
// The cache spans sessions: collections opened repeatedly over the same
// store get their first reads answered from memory.
type CachedStore struct {
	store PersistentStore
	cache *common.Cache[string, cachedValue]
}

type cachedValue struct {
	value   []byte
	present bool
}

// NewCachedStore creates a store caching up to capacity keys of the given
// store. Closing the cached store closes the wrapped store.
func NewCachedStore(store PersistentStore, capacity int) *CachedStore {
	return &CachedStore{
		store: store,
		cache: common.NewCache[string, cachedValue](capacity),
	}
}

func (s *CachedStore) Read(key []byte) ([]byte, bool, error) {
	if cached, found := s.cache.Get(string(key)); found {
		return bytes.Clone(cached.value), cached.present, nil
	}
	value, present, err := s.store.Read(key)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(string(key), cachedValue{bytes.Clone(value), present})
	return value, present, nil
}

func (s *CachedStore) Write(key, value []byte) (bool, error) {
	existed, err := s.store.Write(key, value)
	if err != nil {
		// The state of the key in the wrapped store is unknown.
		s.cache.Remove(string(key))
		return false, err
	}
	s.cache.Set(string(key), cachedValue{bytes.Clone(value), true})
	return existed, nil
}

func (s *CachedStore) Remove(key []byte) (bool, error) {
	existed, err := s.store.Remove(key)
	if err != nil {
		s.cache.Remove(string(key))
		return false, err
	}
	s.cache.Set(string(key), cachedValue{})
	return existed, nil
}

func (s *CachedStore) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	return s.store.ForEach(prefix, callback)
}

func (s *CachedStore) Flush() error {
	return s.store.Flush()
}

func (s *CachedStore) Close() error {
	s.cache.Clear()
	return s.store.Close()
}

func (s *CachedStore) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("cache", s.cache.GetMemoryFootprint(func(v cachedValue) uintptr {
		return uintptr(len(v.value))
	}))
	if provider, ok := s.store.(common.MemoryFootprintProvider); ok {
		mf.AddChild("store", provider.GetMemoryFootprint())
	}
	return mf
}
