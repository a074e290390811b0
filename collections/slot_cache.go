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
	"unsafe"

	"github.com/Fantom-foundation/Stash/common"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SlotCache maps keys to heap-allocated slots. Slots are created lazily with
// their zero value on first access and are never moved or freed while the
// cache is alive, so a pointer obtained for one key remains valid no matter
// how many other keys are added later.
//
// A SlotCache is not safe for concurrent use.
type SlotCache[K comparable, V any] struct {
	slots map[K]*V
	less  func(a, b K) bool
}

// NewSlotCache creates an empty cache enumerating its keys in the given order.
func NewSlotCache[K comparable, V any](less func(a, b K) bool) *SlotCache[K, V] {
	return &SlotCache[K, V]{
		slots: map[K]*V{},
		less:  less,
	}
}

// Less is the natural order of ordered types.
func Less[K constraints.Ordered](a, b K) bool {
	return a < b
}

// Get returns the slot for the given key, creating it if needed.
func (c *SlotCache[K, V]) Get(key K) *V {
	slot, found := c.slots[key]
	if !found {
		slot = new(V)
		c.slots[key] = slot
	}
	return slot
}

// Peek returns the slot for the given key if it exists.
func (c *SlotCache[K, V]) Peek(key K) (*V, bool) {
	slot, found := c.slots[key]
	return slot, found
}

// Len returns the number of slots in the cache.
func (c *SlotCache[K, V]) Len() int {
	return len(c.slots)
}

// IsEmpty reports whether no slot has been created yet.
func (c *SlotCache[K, V]) IsEmpty() bool {
	return len(c.slots) == 0
}

// Keys returns the keys of all slots in ascending order.
func (c *SlotCache[K, V]) Keys() []K {
	keys := maps.Keys(c.slots)
	slices.SortFunc(keys, func(a, b K) int {
		if c.less(a, b) {
			return -1
		}
		if c.less(b, a) {
			return 1
		}
		return 0
	})
	return keys
}

// ForEach calls the callback for all slots in ascending key order. The
// iteration stops at the first error.
func (c *SlotCache[K, V]) ForEach(callback func(key K, slot *V) error) error {
	for _, key := range c.Keys() {
		if err := callback(key, c.slots[key]); err != nil {
			return err
		}
	}
	return nil
}

func (c *SlotCache[K, V]) GetMemoryFootprint() *common.MemoryFootprint {
	var key K
	var slot V
	perEntry := unsafe.Sizeof(key) + unsafe.Sizeof(slot) + unsafe.Sizeof(&slot)
	return common.NewMemoryFootprint(unsafe.Sizeof(*c) + uintptr(len(c.slots))*perEntry)
}
