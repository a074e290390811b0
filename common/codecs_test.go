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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/holiman/uint256"
)

func checkEncoding[T any](t *testing.T, codec Codec[T], value T, want []byte) {
	t.Helper()
	got, err := Encode(codec, value)
	if err != nil {
		t.Fatalf("failed to encode %v: %v", value, err)
	}
	if !cmp.Equal(want, got, cmp.Comparer(bytesEqual)) {
		t.Errorf("unexpected encoding of %v, wanted %v, got %v", value, want, got)
	}
	restored, err := Decode(codec, got)
	if err != nil {
		t.Fatalf("failed to decode %v: %v", got, err)
	}
	if !cmp.Equal(value, restored, cmp.Comparer(bytesEqual)) {
		t.Errorf("decoding did not restore value, wanted %v, got %v", value, restored)
	}
	if len(got) > 0 {
		if _, err := Decode(codec, got[:len(got)-1]); !errors.Is(err, ErrUnexpectedEnd) {
			t.Errorf("decoding truncated input should fail with %v, got %v", ErrUnexpectedEnd, err)
		}
	}
	if _, err := Decode(codec, append(got, 0xFF)); !errors.Is(err, ErrTrailingBytes) {
		t.Errorf("decoding input with trailing bytes should fail with %v, got %v", ErrTrailingBytes, err)
	}
}

// bytesEqual treats nil and empty byte slices as equal.
func bytesEqual(a, b []byte) bool {
	return string(a) == string(b)
}

func TestUnitCodec_EncodesToNothing(t *testing.T) {
	checkEncoding[Unit](t, UnitCodec{}, Unit{}, nil)
}

func TestBoolCodec_Encodings(t *testing.T) {
	checkEncoding[bool](t, BoolCodec{}, false, []byte{0})
	checkEncoding[bool](t, BoolCodec{}, true, []byte{1})
}

func TestBoolCodec_RejectsInvalidBytes(t *testing.T) {
	for _, b := range []byte{2, 0x80, 0xFF} {
		if _, err := Decode[bool](BoolCodec{}, []byte{b}); !errors.Is(err, ErrInvalidEncoding) {
			t.Errorf("decoding %d should fail with %v, got %v", b, ErrInvalidEncoding, err)
		}
	}
}

func TestIntegerCodecs_UseLittleEndianFixedWidth(t *testing.T) {
	checkEncoding[uint8](t, Uint8Codec{}, 0xAB, []byte{0xAB})
	checkEncoding[uint16](t, Uint16Codec{}, 0x0102, []byte{2, 1})
	checkEncoding[uint32](t, Uint32Codec{}, 0x01020304, []byte{4, 3, 2, 1})
	checkEncoding[uint32](t, Uint32Codec{}, math.MaxUint32, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	checkEncoding[uint64](t, Uint64Codec{}, 0x0102030405060708, []byte{8, 7, 6, 5, 4, 3, 2, 1})
	checkEncoding[int32](t, Int32Codec{}, -1, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	checkEncoding[int32](t, Int32Codec{}, math.MinInt32, []byte{0, 0, 0, 0x80})
	checkEncoding[int64](t, Int64Codec{}, -2, []byte{0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	checkEncoding[int64](t, Int64Codec{}, 7, []byte{7, 0, 0, 0, 0, 0, 0, 0})
}

func TestBytesCodec_IsLengthPrefixed(t *testing.T) {
	checkEncoding[[]byte](t, BytesCodec{}, []byte{}, []byte{0, 0, 0, 0})
	checkEncoding[[]byte](t, BytesCodec{}, []byte{1, 2, 3}, []byte{3, 0, 0, 0, 1, 2, 3})
}

func TestBytesCodec_DecodedValueDoesNotAliasInput(t *testing.T) {
	data := []byte{1, 0, 0, 0, 42}
	value, err := Decode[[]byte](BytesCodec{}, data)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	data[4] = 0
	if value[0] != 42 {
		t.Errorf("decoded value should not share memory with the input")
	}
}

func TestStringCodec_IsLengthPrefixedUtf8(t *testing.T) {
	checkEncoding[string](t, StringCodec{}, "", []byte{0, 0, 0, 0})
	checkEncoding[string](t, StringCodec{}, "hi", []byte{2, 0, 0, 0, 'h', 'i'})
	checkEncoding[string](t, StringCodec{}, "ä", []byte{2, 0, 0, 0, 0xC3, 0xA4})
}

func TestStringCodec_RejectsInvalidUtf8(t *testing.T) {
	if _, err := Decode[string](StringCodec{}, []byte{1, 0, 0, 0, 0xFF}); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("decoding invalid UTF-8 should fail with %v, got %v", ErrInvalidEncoding, err)
	}
}

func TestStringCodec_RejectsEncodingInvalidUtf8(t *testing.T) {
	if _, err := Encode[string](StringCodec{}, "\xff\xfe"); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("encoding invalid UTF-8 should fail with %v, got %v", ErrInvalidEncoding, err)
	}
}

func TestAddressAndHashCodecs_AreRawBytes(t *testing.T) {
	address := Address{1, 2, 3}
	checkEncoding[Address](t, AddressCodec{}, address, address[:])
	hash := Hash{0: 0xAA, 31: 0xBB}
	checkEncoding[Hash](t, HashCodec{}, hash, hash[:])
}

func TestUint256Codec_IsLittleEndian(t *testing.T) {
	want := make([]byte, 32)
	want[0] = 1
	want[31] = 0x80
	value := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	value.Add(value, uint256.NewInt(1))
	checkEncoding[uint256.Int](t, Uint256Codec{}, *value, want)
}

func TestPairCodec_ConcatenatesComponents(t *testing.T) {
	codec := PairCodec[[]byte, uint16]{First: BytesCodec{}, Second: Uint16Codec{}}
	checkEncoding[Pair[[]byte, uint16]](t, codec, Pair[[]byte, uint16]{[]byte("a"), 2}, []byte{1, 0, 0, 0, 'a', 2, 0})
}

func TestPairCodec_EncodingsOfDifferentPairsDoNotCollide(t *testing.T) {
	codec := PairCodec[string, string]{First: StringCodec{}, Second: StringCodec{}}
	a, errA := Encode[Pair[string, string]](codec, Pair[string, string]{"ab", "c"})
	b, errB := Encode[Pair[string, string]](codec, Pair[string, string]{"a", "bc"})
	if err := errors.Join(errA, errB); err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if string(a) == string(b) {
		t.Errorf("different pairs should have different encodings, got %v for both", a)
	}
}

func TestSliceCodec_IsCountPrefixed(t *testing.T) {
	codec := SliceCodec[uint16]{Elements: Uint16Codec{}}
	checkEncoding[[]uint16](t, codec, []uint16{}, []byte{0, 0, 0, 0})
	checkEncoding[[]uint16](t, codec, []uint16{1, 0x0203}, []byte{2, 0, 0, 0, 1, 0, 3, 2})
}

func TestSliceCodec_HandlesZeroSizedElements(t *testing.T) {
	codec := SliceCodec[Unit]{Elements: UnitCodec{}}
	checkEncoding[[]Unit](t, codec, []Unit{{}, {}, {}}, []byte{3, 0, 0, 0})
}

func TestSliceCodec_RejectsExcessiveZeroSizedElementCounts(t *testing.T) {
	codec := SliceCodec[Unit]{Elements: UnitCodec{}}
	if _, err := Decode[[]Unit](codec, []byte{0xFF, 0xFF, 0xFF, 0xFF}); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("expected %v, got %v", ErrInvalidEncoding, err)
	}
	limit := make([]byte, 4)
	binary.LittleEndian.PutUint32(limit, MaxZeroSizedElements)
	if got, err := Decode[[]Unit](codec, limit); err != nil || len(got) != MaxZeroSizedElements {
		t.Errorf("decoding %d elements should succeed, got %d, err %v", MaxZeroSizedElements, len(got), err)
	}
}

func TestSliceCodec_ReportsTruncatedElements(t *testing.T) {
	codec := SliceCodec[uint32]{Elements: Uint32Codec{}}
	if _, err := Decode[[]uint32](codec, []byte{5, 0, 0, 0, 1, 0, 0, 0}); !errors.Is(err, ErrUnexpectedEnd) {
		t.Errorf("expected %v, got %v", ErrUnexpectedEnd, err)
	}
}
