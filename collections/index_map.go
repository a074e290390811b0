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
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
)

// IndexMap is a persistent mapping of 32-bit indices to values. The value of
// index i is stored under the key prefix ++ LE32(i). Values are loaded on
// first access and kept in memory until the map is discarded; modifications
// are staged in memory until the next Flush.
type IndexMap[T any] struct {
	prefix []byte
	store  kv.Store
	codec  common.Codec[T]
	cache  *SlotCache[uint32, lazyEntry[T]]
}

// NewIndexMap creates a map over the entries of the store under the given
// prefix.
func NewIndexMap[T any](store kv.Store, prefix []byte, codec common.Codec[T]) *IndexMap[T] {
	return &IndexMap[T]{
		prefix: bytes.Clone(prefix),
		store:  store,
		codec:  codec,
		cache:  NewSlotCache[uint32, lazyEntry[T]](Less[uint32]),
	}
}

// Prefix returns the prefix of all keys of this map.
func (m *IndexMap[T]) Prefix() []byte {
	return bytes.Clone(m.prefix)
}

func (m *IndexMap[T]) physicalKey(index uint32) []byte {
	res := make([]byte, 0, len(m.prefix)+4)
	res = append(res, m.prefix...)
	return binary.LittleEndian.AppendUint32(res, index)
}

func (m *IndexMap[T]) load(index uint32) (*CacheEntry[T], error) {
	slot := m.cache.Get(index)
	return slot.load(func() (T, bool, error) {
		slot.key = m.physicalKey(index)
		return readValue(m.store, slot.key, m.codec)
	})
}

// Get returns the value stored at the given index.
func (m *IndexMap[T]) Get(index uint32) (T, bool, error) {
	entry, err := m.load(index)
	if err != nil {
		var zero T
		return zero, false, err
	}
	value, present := entry.Value()
	return value, present, nil
}

// GetMut returns a pointer to the value stored at the given index, or nil if
// there is none. The entry is considered modified. The pointer remains valid
// for the lifetime of the map.
func (m *IndexMap[T]) GetMut(index uint32) (*T, error) {
	entry, err := m.load(index)
	if err != nil {
		return nil, err
	}
	if _, present := entry.Value(); !present {
		return nil, nil
	}
	return entry.ValueMut(), nil
}

// Set stages a value for the given index. If present is false, the value is
// removed.
func (m *IndexMap[T]) Set(index uint32, value T, present bool) error {
	_, _, err := m.replace(index, value, present)
	return err
}

func (m *IndexMap[T]) replace(index uint32, value T, present bool) (T, bool, error) {
	entry, err := m.load(index)
	if err != nil {
		var zero T
		return zero, false, err
	}
	old, oldPresent := entry.Replace(value, present)
	return old, oldPresent, nil
}

// Flush writes all modified entries to the store, in ascending index order.
func (m *IndexMap[T]) Flush() error {
	return m.cache.ForEach(func(_ uint32, slot *lazyEntry[T]) error {
		return flushEntry(m.store, slot, m.codec)
	})
}

// Close flushes the map. The map remains usable.
func (m *IndexMap[T]) Close() error {
	return m.Flush()
}

func (m *IndexMap[T]) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*m) + uintptr(len(m.prefix)))
	mf.AddChild("cache", m.cache.GetMemoryFootprint())
	return mf
}

// readValue fetches and decodes the value stored under the given key.
func readValue[T any](store kv.Store, key []byte, codec common.Codec[T]) (T, bool, error) {
	var zero T
	data, found, err := store.Read(key)
	if err != nil {
		return zero, false, fmt.Errorf("failed to read key %x; %w", key, err)
	}
	if !found {
		return zero, false, nil
	}
	value, err := common.Decode(codec, data)
	if err != nil {
		return zero, false, fmt.Errorf("%w: value of key %x; %w", ErrDeserialization, key, err)
	}
	return value, true, nil
}

// flushEntry writes a modified entry to the store, or removes its key if the
// value is absent, and marks the entry as cached. Entries that have never
// been loaded or are not modified are skipped.
func flushEntry[T any](store kv.Store, slot *lazyEntry[T], codec common.Codec[T]) error {
	if !slot.loaded || !slot.entry.IsModified() {
		return nil
	}
	value, present := slot.entry.Value()
	if present {
		data, err := common.Encode(codec, value)
		if err != nil {
			return fmt.Errorf("%w: value of key %x; %w", ErrSerialization, slot.key, err)
		}
		if _, err := store.Write(slot.key, data); err != nil {
			return fmt.Errorf("failed to write key %x; %w", slot.key, err)
		}
	} else {
		if _, err := store.Remove(slot.key); err != nil {
			return fmt.Errorf("failed to remove key %x; %w", slot.key, err)
		}
	}
	slot.entry.ReplaceState(Cached)
	return nil
}
