// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package collections

import (
	"bytes"
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	"golang.org/x/exp/constraints"
)

// Map is a persistent map of keys to values. The value of key k is stored
// under prefix ++ encode(k). The key codec must produce self-delimiting
// encodings, which holds for all codecs in the common package, so distinct
// keys never share a physical key.
//
// Values are loaded on first access and remembered for the lifetime of the
// map. Modifications are staged in memory and written by Flush, which must be
// called, directly or through Close or a Session, before the map is dropped.
type Map[K comparable, V any] struct {
	prefix []byte
	store  kv.Store
	keys   common.Codec[K]
	values common.Codec[V]
	cache  *SlotCache[K, lazyEntry[V]]
}

// NewMap creates a map over the entries of the store under the given prefix.
// Entries are flushed in ascending key order.
func NewMap[K constraints.Ordered, V any](
	store kv.Store,
	prefix []byte,
	keys common.Codec[K],
	values common.Codec[V],
) *Map[K, V] {
	return NewMapFunc(store, prefix, keys, values, Less[K])
}

// NewMapFunc is like NewMap but for keys ordered by the given less function.
func NewMapFunc[K comparable, V any](
	store kv.Store,
	prefix []byte,
	keys common.Codec[K],
	values common.Codec[V],
	less func(a, b K) bool,
) *Map[K, V] {
	return &Map[K, V]{
		prefix: bytes.Clone(prefix),
		store:  store,
		keys:   keys,
		values: values,
		cache:  NewSlotCache[K, lazyEntry[V]](less),
	}
}

// Prefix returns the prefix of all keys of this map.
func (m *Map[K, V]) Prefix() []byte {
	return bytes.Clone(m.prefix)
}

func (m *Map[K, V]) physicalKey(key K) ([]byte, error) {
	res, err := m.keys.Append(bytes.Clone(m.prefix), key)
	if err != nil {
		return nil, fmt.Errorf("%w: key %v; %w", ErrSerialization, key, err)
	}
	return res, nil
}

func (m *Map[K, V]) load(key K) (*CacheEntry[V], error) {
	slot := m.cache.Get(key)
	return slot.load(func() (V, bool, error) {
		var zero V
		physical, err := m.physicalKey(key)
		if err != nil {
			return zero, false, err
		}
		slot.key = physical
		return readValue(m.store, physical, m.values)
	})
}

// Get returns the value associated with the given key.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	entry, err := m.load(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	value, present := entry.Value()
	return value, present, nil
}

// MustGet returns the value associated with the given key or ErrKeyNotFound
// if there is none.
func (m *Map[K, V]) MustGet(key K) (V, error) {
	value, found, err := m.Get(key)
	if err == nil && !found {
		err = fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	return value, err
}

// GetMut returns a pointer to the value associated with the given key, or nil
// if there is none. The entry is considered modified. The pointer remains
// valid for the lifetime of the map.
func (m *Map[K, V]) GetMut(key K) (*V, error) {
	entry, err := m.load(key)
	if err != nil {
		return nil, err
	}
	if _, present := entry.Value(); !present {
		return nil, nil
	}
	return entry.ValueMut(), nil
}

// ContainsKey reports whether a value is associated with the given key.
func (m *Map[K, V]) ContainsKey(key K) (bool, error) {
	_, found, err := m.Get(key)
	return found, err
}

// Insert associates the value with the given key and returns the value
// previously associated with it, if any.
func (m *Map[K, V]) Insert(key K, value V) (V, bool, error) {
	return m.replace(key, value, true)
}

// Remove removes the value associated with the given key and returns it.
func (m *Map[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	return m.replace(key, zero, false)
}

// Set associates the value with the given key if present is true and
// removes the association otherwise.
func (m *Map[K, V]) Set(key K, value V, present bool) error {
	_, _, err := m.replace(key, value, present)
	return err
}

func (m *Map[K, V]) replace(key K, value V, present bool) (V, bool, error) {
	entry, err := m.load(key)
	if err != nil {
		var zero V
		return zero, false, err
	}
	old, oldPresent := entry.Replace(value, present)
	return old, oldPresent, nil
}

// Extend inserts all the given entries.
func (m *Map[K, V]) Extend(entries map[K]V) error {
	for key, value := range entries {
		if _, _, err := m.Insert(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes all modified entries to the store, in ascending key order,
// and removes the keys of entries that have been removed.
func (m *Map[K, V]) Flush() error {
	return m.cache.ForEach(func(_ K, slot *lazyEntry[V]) error {
		return flushEntry(m.store, slot, m.values)
	})
}

// Close flushes the map. The map remains usable.
func (m *Map[K, V]) Close() error {
	return m.Flush()
}

func (m *Map[K, V]) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m) + uintptr(len(m.prefix)))
	mf.AddChild("cache", m.cache.GetMemoryFootprint())
	return mf
}
