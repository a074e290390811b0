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

import "fmt"

// ReadOnly provides a view on the given store rejecting all modifications
// with ErrReadOnly. Reads are forwarded to the underlying store.
func ReadOnly(store Store) Store {
	return readOnlyStore{store}
}

type readOnlyStore struct {
	store Store
}

func (s readOnlyStore) Read(key []byte) ([]byte, bool, error) {
	return s.store.Read(key)
}

func (s readOnlyStore) Write(key, _ []byte) (bool, error) {
	return false, fmt.Errorf("%w: cannot write key %x", ErrReadOnly, key)
}

func (s readOnlyStore) Remove(key []byte) (bool, error) {
	return false, fmt.Errorf("%w: cannot remove key %x", ErrReadOnly, key)
}
