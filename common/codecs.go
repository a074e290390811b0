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
	"fmt"
	"math"
	"unicode/utf8"
)

// Codec converts values of type T to and from their canonical binary form.
// Encodings produced by a codec must be self-delimiting: a decoder reading
// from the front of a buffer can tell where the value ends. This makes the
// concatenation of several encodings unambiguous, which is what keeps the
// physical keys of composite logical keys collision free.
//
// The encodings of the codecs in this package follow the Borsh format:
// integers are fixed-width little-endian, byte strings and sequences carry a
// 32-bit little-endian length prefix, and the unit value encodes to nothing.
type Codec[T any] interface {
	// Append appends the encoding of the given value to dst.
	Append(dst []byte, value T) ([]byte, error)
	// Consume decodes a value from the front of data and reports the number
	// of bytes the value occupied.
	Consume(data []byte) (T, int, error)
}

// Encode produces the encoding of a single value.
func Encode[T any](codec Codec[T], value T) ([]byte, error) {
	return codec.Append(nil, value)
}

// Decode decodes a single value which must occupy all of data.
func Decode[T any](codec Codec[T], data []byte) (T, error) {
	res, n, err := codec.Consume(data)
	if err != nil {
		return res, err
	}
	if n != len(data) {
		var zero T
		return zero, fmt.Errorf("%w: %d of %d bytes used", ErrTrailingBytes, n, len(data))
	}
	return res, nil
}

func checkLength(data []byte, want int) error {
	if len(data) < want {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrUnexpectedEnd, want, len(data))
	}
	return nil
}

// UnitCodec encodes the Unit value as an empty byte string.
type UnitCodec struct{}

func (UnitCodec) Append(dst []byte, _ Unit) ([]byte, error) {
	return dst, nil
}

func (UnitCodec) Consume([]byte) (Unit, int, error) {
	return Unit{}, 0, nil
}

// BoolCodec encodes booleans as a single byte, 0 or 1.
type BoolCodec struct{}

func (BoolCodec) Append(dst []byte, value bool) ([]byte, error) {
	if value {
		return append(dst, 1), nil
	}
	return append(dst, 0), nil
}

func (BoolCodec) Consume(data []byte) (bool, int, error) {
	if err := checkLength(data, 1); err != nil {
		return false, 0, err
	}
	switch data[0] {
	case 0:
		return false, 1, nil
	case 1:
		return true, 1, nil
	}
	return false, 0, fmt.Errorf("%w: invalid boolean byte %d", ErrInvalidEncoding, data[0])
}

type Uint8Codec struct{}

func (Uint8Codec) Append(dst []byte, value uint8) ([]byte, error) {
	return append(dst, value), nil
}

func (Uint8Codec) Consume(data []byte) (uint8, int, error) {
	if err := checkLength(data, 1); err != nil {
		return 0, 0, err
	}
	return data[0], 1, nil
}

type Uint16Codec struct{}

func (Uint16Codec) Append(dst []byte, value uint16) ([]byte, error) {
	return binary.LittleEndian.AppendUint16(dst, value), nil
}

func (Uint16Codec) Consume(data []byte) (uint16, int, error) {
	if err := checkLength(data, 2); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint16(data), 2, nil
}

// Uint32Codec encodes 32-bit integers as 4 little-endian bytes. It is the
// encoding of the indices of persistent vectors.
type Uint32Codec struct{}

func (Uint32Codec) Append(dst []byte, value uint32) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(dst, value), nil
}

func (Uint32Codec) Consume(data []byte) (uint32, int, error) {
	if err := checkLength(data, 4); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(data), 4, nil
}

type Uint64Codec struct{}

func (Uint64Codec) Append(dst []byte, value uint64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, value), nil
}

func (Uint64Codec) Consume(data []byte) (uint64, int, error) {
	if err := checkLength(data, 8); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint64(data), 8, nil
}

type Int32Codec struct{}

func (Int32Codec) Append(dst []byte, value int32) ([]byte, error) {
	return binary.LittleEndian.AppendUint32(dst, uint32(value)), nil
}

func (Int32Codec) Consume(data []byte) (int32, int, error) {
	res, n, err := Uint32Codec{}.Consume(data)
	return int32(res), n, err
}

type Int64Codec struct{}

func (Int64Codec) Append(dst []byte, value int64) ([]byte, error) {
	return binary.LittleEndian.AppendUint64(dst, uint64(value)), nil
}

func (Int64Codec) Consume(data []byte) (int64, int, error) {
	res, n, err := Uint64Codec{}.Consume(data)
	return int64(res), n, err
}

// BytesCodec encodes byte strings with a 32-bit little-endian length prefix.
// Decoded slices are copies and do not alias the input.
type BytesCodec struct{}

func (BytesCodec) Append(dst []byte, value []byte) ([]byte, error) {
	if uint64(len(value)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: byte string of length %d", ErrValueTooLarge, len(value))
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value)))
	return append(dst, value...), nil
}

func (BytesCodec) Consume(data []byte) ([]byte, int, error) {
	length, _, err := Uint32Codec{}.Consume(data)
	if err != nil {
		return nil, 0, err
	}
	end := 4 + uint64(length)
	if uint64(len(data)) < end {
		return nil, 0, fmt.Errorf("%w: byte string of length %d exceeds %d available bytes", ErrUnexpectedEnd, length, len(data)-4)
	}
	res := make([]byte, length)
	copy(res, data[4:end])
	return res, int(end), nil
}

// StringCodec encodes strings like byte strings. Both encoding and decoding
// fail for content that is not valid UTF-8.
type StringCodec struct{}

func (StringCodec) Append(dst []byte, value string) ([]byte, error) {
	if uint64(len(value)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: string of length %d", ErrValueTooLarge, len(value))
	}
	if !utf8.ValidString(value) {
		return dst, fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidEncoding)
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value)))
	return append(dst, value...), nil
}

func (StringCodec) Consume(data []byte) (string, int, error) {
	raw, n, err := BytesCodec{}.Consume(data)
	if err != nil {
		return "", 0, err
	}
	if !utf8.Valid(raw) {
		return "", 0, fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidEncoding)
	}
	return string(raw), n, nil
}

// AddressCodec encodes addresses as their 20 raw bytes.
type AddressCodec struct{}

func (AddressCodec) Append(dst []byte, value Address) ([]byte, error) {
	return append(dst, value[:]...), nil
}

func (AddressCodec) Consume(data []byte) (Address, int, error) {
	var res Address
	if err := checkLength(data, len(res)); err != nil {
		return res, 0, err
	}
	copy(res[:], data)
	return res, len(res), nil
}

// HashCodec encodes hashes as their 32 raw bytes.
type HashCodec struct{}

func (HashCodec) Append(dst []byte, value Hash) ([]byte, error) {
	return append(dst, value[:]...), nil
}

func (HashCodec) Consume(data []byte) (Hash, int, error) {
	var res Hash
	if err := checkLength(data, len(res)); err != nil {
		return res, 0, err
	}
	copy(res[:], data)
	return res, len(res), nil
}

// Pair is a composite of two values, usable as a composite map key.
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairCodec encodes a pair as the concatenation of the encodings of its
// components. Since both component encodings are self-delimiting, so is the
// encoding of the pair.
type PairCodec[A, B any] struct {
	First  Codec[A]
	Second Codec[B]
}

func (c PairCodec[A, B]) Append(dst []byte, value Pair[A, B]) ([]byte, error) {
	dst, err := c.First.Append(dst, value.First)
	if err != nil {
		return dst, err
	}
	return c.Second.Append(dst, value.Second)
}

func (c PairCodec[A, B]) Consume(data []byte) (Pair[A, B], int, error) {
	var res Pair[A, B]
	first, n, err := c.First.Consume(data)
	if err != nil {
		return res, 0, err
	}
	second, m, err := c.Second.Consume(data[n:])
	if err != nil {
		return res, 0, err
	}
	res.First = first
	res.Second = second
	return res, n + m, nil
}

// MaxZeroSizedElements is the maximum number of elements SliceCodec decodes
// for element types encoding to zero bytes.
const MaxZeroSizedElements = 1 << 16

// SliceCodec encodes a sequence as a 32-bit little-endian element count
// followed by the encoding of each element.
type SliceCodec[T any] struct {
	Elements Codec[T]
}

func (c SliceCodec[T]) Append(dst []byte, value []T) ([]byte, error) {
	if uint64(len(value)) > math.MaxUint32 {
		return dst, fmt.Errorf("%w: sequence of length %d", ErrValueTooLarge, len(value))
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value)))
	for _, cur := range value {
		var err error
		if dst, err = c.Elements.Append(dst, cur); err != nil {
			return dst, err
		}
	}
	return dst, nil
}

func (c SliceCodec[T]) Consume(data []byte) ([]T, int, error) {
	length, pos, err := Uint32Codec{}.Consume(data)
	if err != nil {
		return nil, 0, err
	}
	// Elements may encode to zero bytes, so length is not bounded by len(data).
	res := make([]T, 0, min(int(length), len(data)))
	for i := uint32(0); i < length; i++ {
		cur, n, err := c.Elements.Consume(data[pos:])
		if err != nil {
			return nil, 0, err
		}
		if n == 0 && length > MaxZeroSizedElements {
			return nil, 0, fmt.Errorf("%w: %d zero-sized elements exceed limit of %d", ErrInvalidEncoding, length, MaxZeroSizedElements)
		}
		res = append(res, cur)
		pos += n
	}
	return res, pos, nil
}
