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

import (
	"hash"
	"sync"

	"golang.org/x/crypto/sha3"
)

var keccakHasherPool = sync.Pool{New: func() any { return sha3.NewLegacyKeccak256() }}

// Keccak256 computes the legacy Keccak-256 hash of the given data.
func Keccak256(data []byte) Hash {
	hasher := NewKeccakHasher()
	defer hasher.Release()
	hasher.Write(data)
	return hasher.Sum()
}

// KeccakHasher is a pooled incremental Keccak-256 hasher. It must be
// released after use.
type KeccakHasher struct {
	state hash.Hash
}

// NewKeccakHasher obtains a reset hasher from the internal pool.
func NewKeccakHasher() *KeccakHasher {
	state := keccakHasherPool.Get().(hash.Hash)
	state.Reset()
	return &KeccakHasher{state: state}
}

// Write adds data to the hashed content.
func (h *KeccakHasher) Write(data []byte) {
	// Writing to a sha3 state never fails.
	_, _ = h.state.Write(data)
}

// Sum returns the hash of everything written so far.
func (h *KeccakHasher) Sum() Hash {
	var res Hash
	h.state.Sum(res[:0])
	return res
}

// Release returns the hasher to the pool. The hasher becomes invalid.
func (h *KeccakHasher) Release() {
	keccakHasherPool.Put(h.state)
	h.state = nil
}
