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
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Uint256Codec encodes 256-bit unsigned integers as four 64-bit limbs, least
// significant limb first, each limb in little-endian byte order. This is the
// 32-byte little-endian representation of the number.
type Uint256Codec struct{}

func (Uint256Codec) Append(dst []byte, value uint256.Int) ([]byte, error) {
	for _, limb := range value {
		dst = binary.LittleEndian.AppendUint64(dst, limb)
	}
	return dst, nil
}

func (Uint256Codec) Consume(data []byte) (uint256.Int, int, error) {
	var res uint256.Int
	if err := checkLength(data, 32); err != nil {
		return res, 0, err
	}
	for i := range res {
		res[i] = binary.LittleEndian.Uint64(data[8*i:])
	}
	return res, 32, nil
}
