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

import "github.com/Fantom-foundation/Stash/common"

// Errors reported by collections. All of them are fatal for the session
// reporting them: stored data is corrupted or the caller violated a
// precondition, and repeating the operation cannot succeed.
const (
	// ErrDeserialization is reported if stored bytes cannot be decoded.
	ErrDeserialization = common.ConstError("cannot deserialize value")
	// ErrSerialization is reported if a value or key cannot be encoded.
	ErrSerialization = common.ConstError("cannot serialize value")
	// ErrIndexOutOfBounds is reported for writes beyond the end of a vector.
	ErrIndexOutOfBounds = common.ConstError("index out of bounds")
	// ErrLengthOverflow is reported when a vector would exceed the maximum length.
	ErrLengthOverflow = common.ConstError("length overflow")
	// ErrKeyNotFound is reported by MustGet for keys without a value.
	ErrKeyNotFound = common.ConstError("key not found")
	// ErrInconsistentState is reported if an element within the bounds of a
	// vector is missing in the store.
	ErrInconsistentState = common.ConstError("inconsistent state")
	// ErrReentrantSession is reported when opening a guarded session while
	// another guarded session is active on the same store.
	ErrReentrantSession = common.ConstError("reentrant session")
)
