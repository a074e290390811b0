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
	"github.com/Fantom-foundation/Stash/common"
)

// GetStateHash computes a Keccak-256 hash over the entries stored under the
// given prefix. Entries are hashed in key order, each one as the
// length-prefixed key followed by the length-prefixed value, so two stores
// have the same hash iff they hold the same entries. An empty range hashes
// to the hash of the empty input.
func GetStateHash(store Iterable, prefix []byte) (common.Hash, error) {
	hasher := common.NewKeccakHasher()
	defer hasher.Release()
	var buffer []byte
	err := store.ForEach(prefix, func(key, value []byte) error {
		var err error
		buffer, err = common.BytesCodec{}.Append(buffer[:0], key)
		if err != nil {
			return err
		}
		buffer, err = common.BytesCodec{}.Append(buffer, value)
		if err != nil {
			return err
		}
		hasher.Write(buffer)
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return hasher.Sum(), nil
}

// Count returns the number of entries stored under the given prefix.
func Count(store Iterable, prefix []byte) (int, error) {
	count := 0
	err := store.ForEach(prefix, func(_, _ []byte) error {
		count++
		return nil
	})
	return count, err
}
