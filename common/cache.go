// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import "unsafe"

// Cache implements a bounded LRU memory overlay for key-value pairs.
type Cache[K comparable, V any] struct {
	cache    map[K]*entry[K, V]
	capacity int
	head     *entry[K, V]
	tail     *entry[K, V]
}

// NewCache returns a new instance holding at most capacity entries.
func NewCache[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		cache:    make(map[K]*entry[K, V], capacity),
		capacity: capacity,
	}
}

// Get returns a value from the cache or false. If the value exists, it is
// marked as the most recently used entry.
func (c *Cache[K, V]) Get(key K) (val V, exists bool) {
	item, exists := c.cache[key]
	if exists {
		val = item.val
		c.touch(item)
	}
	return
}

// Set associates a key to the cache. If the key is already present, the value
// is updated and the key marked as used. Otherwise a new entry is added, which
// evicts the least recently used entry if the capacity is exceeded.
func (c *Cache[K, V]) Set(key K, val V) {
	if item, exists := c.cache[key]; exists {
		item.val = val
		c.touch(item)
		return
	}
	if len(c.cache) >= c.capacity {
		c.dropLast()
	}
	item := &entry[K, V]{key: key, val: val}
	c.cache[key] = item
	c.pushFront(item)
}

// Remove deletes the key from the cache, if present.
func (c *Cache[K, V]) Remove(key K) {
	item, exists := c.cache[key]
	if !exists {
		return
	}
	c.unlink(item)
	delete(c.cache, key)
}

// Size returns the number of entries in the cache.
func (c *Cache[K, V]) Size() int {
	return len(c.cache)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.cache = make(map[K]*entry[K, V], c.capacity)
	c.head = nil
	c.tail = nil
}

func (c *Cache[K, V]) GetMemoryFootprint(valueSize func(V) uintptr) *MemoryFootprint {
	size := unsafe.Sizeof(*c) + uintptr(len(c.cache))*unsafe.Sizeof(entry[K, V]{})
	if valueSize != nil {
		for _, item := range c.cache {
			size += valueSize(item.val)
		}
	}
	return NewMemoryFootprint(size)
}

func (c *Cache[K, V]) touch(item *entry[K, V]) {
	if item == c.head {
		return
	}
	c.unlink(item)
	c.pushFront(item)
}

func (c *Cache[K, V]) pushFront(item *entry[K, V]) {
	item.prev = nil
	item.next = c.head
	if c.head != nil {
		c.head.prev = item
	}
	c.head = item
	if c.tail == nil {
		c.tail = item
	}
}

func (c *Cache[K, V]) unlink(item *entry[K, V]) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		c.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		c.tail = item.prev
	}
	item.prev = nil
	item.next = nil
}

func (c *Cache[K, V]) dropLast() {
	if c.tail == nil {
		return
	}
	last := c.tail
	c.unlink(last)
	delete(c.cache, last.key)
}

// entry is a cache item wrapping a key, a value and references to the
// previous and next elements of the LRU list.
type entry[K comparable, V any] struct {
	key  K
	val  V
	prev *entry[K, V]
	next *entry[K, V]
}
