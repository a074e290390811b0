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

// ConstError is an error type for immutable error constants. Constants are
// typically wrapped with %w to attach details and matched using errors.Is.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// Errors reported by codecs.
const (
	ErrUnexpectedEnd   = ConstError("unexpected end of encoded data")
	ErrTrailingBytes   = ConstError("trailing bytes after encoded value")
	ErrInvalidEncoding = ConstError("invalid encoding")
	ErrValueTooLarge   = ConstError("value too large to be encoded")
)
