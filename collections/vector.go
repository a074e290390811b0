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

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
)

// Vector is a persistent, growable sequence of values. Element i is stored
// under prefix ++ LE32(i); the length is stored under the prefix itself.
// Elements at positions beyond the length are never exposed, even if stale
// entries remain in the store.
//
// Vectors only grow at the end: Push appends and Set only overwrites existing
// elements.
type Vector[T any] struct {
	length      uint32
	lengthDirty bool
	values      *IndexMap[T]
}

// NewVector creates an empty vector under the given prefix. Its length is
// written on the first flush, replacing any content previously recorded
// under the same prefix.
func NewVector[T any](store kv.Store, prefix []byte, codec common.Codec[T]) *Vector[T] {
	return &Vector[T]{
		lengthDirty: true,
		values:      NewIndexMap(store, prefix, codec),
	}
}

// OpenVector opens the vector stored under the given prefix. If there is no
// such vector, an empty one is returned.
func OpenVector[T any](store kv.Store, prefix []byte, codec common.Codec[T]) (*Vector[T], error) {
	length, _, err := readValue[uint32](store, prefix, common.Uint32Codec{})
	if err != nil {
		return nil, err
	}
	return &Vector[T]{
		length: length,
		values: NewIndexMap(store, prefix, codec),
	}, nil
}

// OpenVectorFromBinary restores a vector from the descriptor produced by
// MarshalBinary, binding it to the given store.
func OpenVectorFromBinary[T any](store kv.Store, data []byte, codec common.Codec[T]) (*Vector[T], error) {
	descriptor, err := common.Decode(vectorDescriptorCodec, data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector descriptor; %w", ErrDeserialization, err)
	}
	return &Vector[T]{
		length: descriptor.First,
		values: NewIndexMap(store, descriptor.Second, codec),
	}, nil
}

var vectorDescriptorCodec common.Codec[common.Pair[uint32, []byte]] = common.PairCodec[uint32, []byte]{
	First:  common.Uint32Codec{},
	Second: common.BytesCodec{},
}

// MarshalBinary encodes the length and the prefix of the vector, which is
// what is needed to embed the vector in another persisted value. Elements
// are not included; they need to be flushed to be visible to the restored
// vector.
func (v *Vector[T]) MarshalBinary() ([]byte, error) {
	return common.Encode(vectorDescriptorCodec, common.Pair[uint32, []byte]{
		First:  v.length,
		Second: v.values.prefix,
	})
}

// Prefix returns the prefix of all keys of this vector.
func (v *Vector[T]) Prefix() []byte {
	return v.values.Prefix()
}

// Len returns the number of elements.
func (v *Vector[T]) Len() uint32 {
	return v.length
}

// IsEmpty reports whether the vector has no elements.
func (v *Vector[T]) IsEmpty() bool {
	return v.length == 0
}

// Get returns the element at the given position. Positions beyond the end of
// the vector are reported as absent.
func (v *Vector[T]) Get(index uint32) (T, bool, error) {
	if index >= v.length {
		var zero T
		return zero, false, nil
	}
	return v.values.Get(index)
}

// At returns the element at the given position or ErrIndexOutOfBounds.
func (v *Vector[T]) At(index uint32) (T, error) {
	if index >= v.length {
		var zero T
		return zero, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, index, v.length)
	}
	value, found, err := v.values.Get(index)
	if err == nil && !found {
		err = fmt.Errorf("%w: element %d of vector %x is missing", ErrInconsistentState, index, v.values.prefix)
	}
	return value, err
}

// GetMut returns a pointer to the element at the given position, or nil if
// the position is beyond the end of the vector. The pointer remains valid for
// the lifetime of the vector, yet writes through it are only persisted while
// the element is within the bounds of the vector.
func (v *Vector[T]) GetMut(index uint32) (*T, error) {
	if index >= v.length {
		return nil, nil
	}
	return v.values.GetMut(index)
}

// Set overwrites the element at the given position. Positions beyond the end
// of the vector are rejected with ErrIndexOutOfBounds.
func (v *Vector[T]) Set(index uint32, value T) error {
	if index >= v.length {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, index, v.length)
	}
	return v.values.Set(index, value, true)
}

// Push appends an element.
func (v *Vector[T]) Push(value T) error {
	if v.length == math.MaxUint32 {
		return fmt.Errorf("%w: vector %x holds %d elements", ErrLengthOverflow, v.values.prefix, v.length)
	}
	if err := v.values.Set(v.length, value, true); err != nil {
		return err
	}
	v.length++
	v.lengthDirty = true
	return nil
}

// Extend appends all given elements.
func (v *Vector[T]) Extend(values []T) error {
	for _, value := range values {
		if err := v.Push(value); err != nil {
			return err
		}
	}
	return nil
}

// Pop removes the last element and returns it. For an empty vector, the
// result is absent.
func (v *Vector[T]) Pop() (T, bool, error) {
	var zero T
	if v.length == 0 {
		return zero, false, nil
	}
	last := v.length - 1
	value, found, err := v.values.replace(last, zero, false)
	if err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, fmt.Errorf("%w: element %d of vector %x is missing", ErrInconsistentState, last, v.values.prefix)
	}
	v.length = last
	v.lengthDirty = true
	return value, true, nil
}

// SwapRemove removes the element at the given position and returns it. The
// last element takes its place, so the order of elements is not preserved.
// Positions beyond the end of the vector are rejected with
// ErrIndexOutOfBounds.
func (v *Vector[T]) SwapRemove(index uint32) (T, error) {
	var zero T
	if index >= v.length {
		return zero, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, index, v.length)
	}
	if index == v.length-1 {
		value, _, err := v.Pop()
		return value, err
	}
	// Check the target first, so the vector stays intact if it is unusable.
	target, err := v.values.load(index)
	if err != nil {
		return zero, err
	}
	if _, present := target.Value(); !present {
		return zero, fmt.Errorf("%w: element %d of vector %x is missing", ErrInconsistentState, index, v.values.prefix)
	}
	last, _, err := v.Pop()
	if err != nil {
		return zero, err
	}
	removed, _, err := v.values.replace(index, last, true)
	return removed, err
}

// Flush writes the length, if it changed, and all modified elements to the
// store.
func (v *Vector[T]) Flush() error {
	if v.lengthDirty {
		data, err := common.Encode[uint32](common.Uint32Codec{}, v.length)
		if err != nil {
			return err
		}
		if _, err := v.values.store.Write(v.values.prefix, data); err != nil {
			return fmt.Errorf("failed to write length of vector %x; %w", v.values.prefix, err)
		}
		v.lengthDirty = false
	}
	return v.values.Flush()
}

// Close flushes the vector. The vector remains usable.
func (v *Vector[T]) Close() error {
	return v.Flush()
}

func (v *Vector[T]) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*v))
	mf.AddChild("values", v.values.GetMemoryFootprint())
	return mf
}
