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
	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	"golang.org/x/exp/constraints"
)

// Set is a persistent set of keys. A key k is a member iff the store
// contains prefix ++ encode(k), mapped to an empty value.
type Set[K comparable] struct {
	entries *Map[K, common.Unit]
}

// NewSet creates a set over the entries of the store under the given prefix.
func NewSet[K constraints.Ordered](store kv.Store, prefix []byte, keys common.Codec[K]) *Set[K] {
	return NewSetFunc(store, prefix, keys, Less[K])
}

// NewSetFunc is like NewSet but for keys ordered by the given less function.
func NewSetFunc[K comparable](store kv.Store, prefix []byte, keys common.Codec[K], less func(a, b K) bool) *Set[K] {
	return &Set[K]{
		entries: NewMapFunc[K, common.Unit](store, prefix, keys, common.UnitCodec{}, less),
	}
}

// Prefix returns the prefix of all keys of this set.
func (s *Set[K]) Prefix() []byte {
	return s.entries.Prefix()
}

// Insert adds the key to the set and reports whether it was not a member
// before.
func (s *Set[K]) Insert(key K) (bool, error) {
	_, present, err := s.entries.Insert(key, common.Unit{})
	return !present, err
}

// Remove removes the key from the set and reports whether it was a member.
func (s *Set[K]) Remove(key K) (bool, error) {
	_, present, err := s.entries.Remove(key)
	return present, err
}

// Contains reports whether the key is a member of the set.
func (s *Set[K]) Contains(key K) (bool, error) {
	return s.entries.ContainsKey(key)
}

// Extend adds all the given keys.
func (s *Set[K]) Extend(keys []K) error {
	for _, key := range keys {
		if _, err := s.Insert(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set[K]) Flush() error {
	return s.entries.Flush()
}

func (s *Set[K]) Close() error {
	return s.entries.Close()
}

func (s *Set[K]) GetMemoryFootprint() *common.MemoryFootprint {
	return s.entries.GetMemoryFootprint()
}
