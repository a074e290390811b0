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
	"encoding/hex"
)

// Address is a 20-byte account address as used for keys of persistent maps.
type Address [20]byte

// Hash is a 32-byte hash value, e.g. the state hash of a store.
type Hash [32]byte

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// Unit is the value type of collections where only the presence of a key
// carries information. It encodes to zero bytes.
type Unit struct{}
