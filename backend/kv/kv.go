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

//go:generate mockgen -source kv.go -destination kv_mocks.go -package kv

import (
	"github.com/Fantom-foundation/Stash/common"
)

// Store is a byte-oriented key/value store. It is the only collaborator the
// persistent collections rely on. Implementations need to provide
// read-your-writes consistency within one session; no transactions, batching
// or ordering guarantees beyond that are assumed.
//
// Keys and values passed to a store may be retained by the caller and
// modified after the call returns; values returned by a store are owned by
// the caller.
type Store interface {
	// Read returns the value stored under the given key. The boolean result
	// is false if there is no such value.
	Read(key []byte) ([]byte, bool, error)

	// Write stores the value under the given key. It reports whether a value
	// was present under the key before.
	Write(key, value []byte) (bool, error)

	// Remove deletes the value stored under the given key. It reports whether
	// a value was present.
	Remove(key []byte) (bool, error)
}

// Iterable is implemented by stores able to enumerate their content.
type Iterable interface {
	// ForEach calls the callback for each key/value pair whose key starts
	// with the given prefix, in ascending byte order of the keys. The
	// iteration stops at the first error returned by the callback. The
	// slices passed to the callback are only valid during the call, and the
	// callback must not access the store.
	ForEach(prefix []byte, callback func(key, value []byte) error) error
}

// PersistentStore is a Store owning resources, such as files or database
// connections, that need to be flushed and released.
type PersistentStore interface {
	Store
	Iterable
	common.FlushAndCloser
}

const (
	// ErrReadOnly is reported by stores rejecting modifications.
	ErrReadOnly = common.ConstError("store is read-only")
	// ErrClosed is reported when accessing a store that has been closed.
	ErrClosed = common.ConstError("store is closed")
)
