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

import "fmt"

// EntryState tracks whether a cached entry differs from the store.
type EntryState int

const (
	// Cached entries match the content of the store.
	Cached EntryState = iota
	// Modified entries need to be written to the store on the next flush.
	Modified
)

func (s EntryState) String() string {
	switch s {
	case Cached:
		return "Cached"
	case Modified:
		return "Modified"
	}
	return fmt.Sprintf("EntryState(%d)", int(s))
}

// CacheEntry is a cached, optional value together with its dirtiness state.
// The zero value is a cached absent value.
type CacheEntry[T any] struct {
	value   T
	present bool
	state   EntryState
}

// NewCachedEntry creates an entry holding a value as it is found in the store.
func NewCachedEntry[T any](value T, present bool) CacheEntry[T] {
	return CacheEntry[T]{value: value, present: present, state: Cached}
}

// NewModifiedEntry creates an entry holding a value still to be written.
func NewModifiedEntry[T any](value T, present bool) CacheEntry[T] {
	return CacheEntry[T]{value: value, present: present, state: Modified}
}

// Value returns the current value without affecting the state of the entry.
func (e *CacheEntry[T]) Value() (T, bool) {
	return e.value, e.present
}

// ValueMut marks the entry as modified and returns a pointer to the value,
// or nil if the value is absent. The entry is marked even if it is never
// written through the result, so Value should be used for inspection.
func (e *CacheEntry[T]) ValueMut() *T {
	e.state = Modified
	if !e.present {
		return nil
	}
	return &e.value
}

// Replace sets a new value and returns the old one. The entry becomes
// modified unless both the old and the new value are absent.
func (e *CacheEntry[T]) Replace(value T, present bool) (T, bool) {
	old, oldPresent := e.value, e.present
	if !present {
		var zero T
		value = zero
	}
	e.value, e.present = value, present
	if oldPresent || present {
		e.state = Modified
	}
	return old, oldPresent
}

// IsModified reports whether the entry needs to be written to the store.
func (e *CacheEntry[T]) IsModified() bool {
	return e.state == Modified
}

// ReplaceState updates the state of the entry and returns the previous one.
func (e *CacheEntry[T]) ReplaceState(state EntryState) EntryState {
	old := e.state
	e.state = state
	return old
}

// lazyEntry is a cache entry that is loaded from the store on first access.
// An entry that is not yet loaded is in the Uninitialized state.
type lazyEntry[T any] struct {
	loaded bool
	entry  CacheEntry[T]
	// key is the memoized physical key of the entry, set when loaded.
	key []byte
}

// load initializes the entry from the store unless it is already loaded.
func (e *lazyEntry[T]) load(reader func() (T, bool, error)) (*CacheEntry[T], error) {
	if !e.loaded {
		value, present, err := reader()
		if err != nil {
			return nil, err
		}
		e.entry = NewCachedEntry(value, present)
		e.loaded = true
	}
	return &e.entry, nil
}
