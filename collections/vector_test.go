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
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/backend/kv/memory"
	"github.com/Fantom-foundation/Stash/backend/kv/metered"
	"github.com/Fantom-foundation/Stash/common"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"
)

func newStringVector(store kv.Store) *Vector[string] {
	return NewVector[string](store, []byte("v"), common.StringCodec{})
}

func openStringVector(t *testing.T, store kv.Store) *Vector[string] {
	t.Helper()
	v, err := OpenVector[string](store, []byte("v"), common.StringCodec{})
	if err != nil {
		t.Fatalf("failed to open vector: %v", err)
	}
	return v
}

func getElements(t *testing.T, v *Vector[string]) []string {
	t.Helper()
	res := []string{}
	for i := uint32(0); i < v.Len(); i++ {
		value, err := v.At(i)
		if err != nil {
			t.Fatalf("failed to get element %d: %v", i, err)
		}
		res = append(res, value)
	}
	return res
}

func TestVector_NewVectorIsEmpty(t *testing.T) {
	v := newStringVector(memory.NewStore())
	if !v.IsEmpty() || v.Len() != 0 {
		t.Errorf("new vector should be empty, has length %d", v.Len())
	}
	if _, found, err := v.Pop(); err != nil || found {
		t.Errorf("pop of empty vector should be absent, found %t, err %v", found, err)
	}
}

func TestVector_PushedElementsCanBeRetrieved(t *testing.T) {
	v := newStringVector(memory.NewStore())
	if err := v.Extend([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if v.Len() != 3 || v.IsEmpty() {
		t.Errorf("unexpected length, wanted 3, got %d", v.Len())
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, getElements(t, v)); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
}

func TestVector_ContentSurvivesReopening(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	reopened := openStringVector(t, store)
	if diff := cmp.Diff([]string{"a", "b", "c"}, getElements(t, reopened)); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
}

func TestVector_OpeningUnknownVectorYieldsEmptyVector(t *testing.T) {
	v := openStringVector(t, memory.NewStore())
	if !v.IsEmpty() {
		t.Errorf("vector should be empty, has length %d", v.Len())
	}
}

func TestVector_LengthIsStoredUnderPrefix(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	got := map[string][]byte{}
	err := store.ForEach(nil, func(key, value []byte) error {
		got[string(key)] = value
		return nil
	})
	if err != nil {
		t.Fatalf("failed to enumerate store: %v", err)
	}
	want := map[string][]byte{
		"v":                 {2, 0, 0, 0},
		"v\x00\x00\x00\x00": {1, 0, 0, 0, 'a'},
		"v\x01\x00\x00\x00": {1, 0, 0, 0, 'b'},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected store content (-want +got):\n%s", diff)
	}
}

func TestVector_PopTombstonesLastElement(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}

	v = openStringVector(t, store)
	value, found, err := v.Pop()
	if err != nil || !found || value != "b" {
		t.Fatalf("unexpected pop result, got %q, found %t, err %v", value, found, err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if _, found, _ := store.Read([]byte{'v', 1, 0, 0, 0}); found {
		t.Errorf("popped element should be removed from the store")
	}
	if v.Len() != 1 {
		t.Errorf("unexpected length, wanted 1, got %d", v.Len())
	}
}

func TestVector_SwapRemoveMovesLastElement(t *testing.T) {
	v := newStringVector(memory.NewStore())
	if err := v.Extend([]string{"a", "b", "c", "d"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	removed, err := v.SwapRemove(1)
	if err != nil || removed != "b" {
		t.Fatalf("unexpected removed element, wanted b, got %q, err %v", removed, err)
	}
	if v.Len() != 3 {
		t.Errorf("unexpected length, wanted 3, got %d", v.Len())
	}
	if diff := cmp.Diff([]string{"a", "d", "c"}, getElements(t, v)); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
}

func TestVector_SwapRemoveOfLastElementPops(t *testing.T) {
	v := newStringVector(memory.NewStore())
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	removed, err := v.SwapRemove(1)
	if err != nil || removed != "b" {
		t.Fatalf("unexpected removed element, wanted b, got %q, err %v", removed, err)
	}
	if diff := cmp.Diff([]string{"a"}, getElements(t, v)); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
}

func TestVector_OutOfBoundsWritesAreRejected(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	before := store.Clone()

	if err := v.Set(v.Len(), "x"); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected out of bounds error, got %v", err)
	}
	if _, err := v.SwapRemove(5); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected out of bounds error, got %v", err)
	}
	if _, err := v.At(2); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected out of bounds error, got %v", err)
	}
	if v.Len() != 2 {
		t.Errorf("length should be unchanged, got %d", v.Len())
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	wantHash, _ := before.GetStateHash()
	gotHash, _ := store.GetStateHash()
	if wantHash != gotHash {
		t.Errorf("store content should be unchanged")
	}
}

func TestVector_OutOfBoundsReadsAreAbsent(t *testing.T) {
	v := newStringVector(memory.NewStore())
	if err := v.Push("a"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if _, found, err := v.Get(1); err != nil || found {
		t.Errorf("out of bounds read should be absent, found %t, err %v", found, err)
	}
	if ptr, err := v.GetMut(1); err != nil || ptr != nil {
		t.Errorf("out of bounds mutable read should be absent, got %v, err %v", ptr, err)
	}
}

func TestVector_StaleElementsBeyondLengthAreHidden(t *testing.T) {
	store := memory.NewStore()
	// A leftover element of a former, longer vector.
	if _, err := store.Write([]byte{'v', 1, 0, 0, 0}, []byte{1, 0, 0, 0, 'z'}); err != nil {
		t.Fatalf("failed to prepare store: %v", err)
	}
	v := newStringVector(store)
	if err := v.Push("a"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if _, found, err := v.Get(1); err != nil || found {
		t.Errorf("stale element should not be visible, found %t, err %v", found, err)
	}
	if err := v.Push("b"); err != nil {
		t.Fatalf("failed to push: %v", err)
	}
	if value, err := v.At(1); err != nil || value != "b" {
		t.Errorf("pushed element should replace stale one, got %q, err %v", value, err)
	}
}

func TestVector_SetOverwritesElements(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Set(0, "x"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	ptr, err := v.GetMut(1)
	if err != nil || ptr == nil {
		t.Fatalf("failed to get mutable element: %v", err)
	}
	*ptr = "y"
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if diff := cmp.Diff([]string{"x", "y"}, getElements(t, openStringVector(t, store))); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
}

func TestVector_PushFailsOnLengthOverflow(t *testing.T) {
	v := newStringVector(memory.NewStore())
	v.length = math.MaxUint32
	if err := v.Push("a"); !errors.Is(err, ErrLengthOverflow) {
		t.Errorf("expected length overflow, got %v", err)
	}
	if v.Len() != math.MaxUint32 {
		t.Errorf("length should be unchanged")
	}
}

func TestVector_FlushIsIdempotent(t *testing.T) {
	store := metered.NewStore(memory.NewStore(), nil)
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if got := store.Stats().Writes; got != 4 {
		t.Errorf("expected 3 element writes and a length write, got %d", got)
	}
	store.ResetStats()
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if stats := store.Stats(); stats.Writes != 0 || stats.Removes != 0 {
		t.Errorf("second flush should not touch the store, got %+v", stats)
	}
}

func TestVector_MissingElementsAreReportedAsInconsistency(t *testing.T) {
	store := memory.NewStore()
	if _, err := store.Write([]byte("v"), []byte{2, 0, 0, 0}); err != nil {
		t.Fatalf("failed to prepare store: %v", err)
	}
	v := openStringVector(t, store)
	if _, err := v.At(0); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected inconsistent state, got %v", err)
	}
	if _, _, err := v.Pop(); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected inconsistent state, got %v", err)
	}
	if v.Len() != 2 {
		t.Errorf("failed pop should not change the length")
	}
}

func TestVector_SwapRemoveOfMissingElementIsReportedAsInconsistency(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if _, err := store.Remove([]byte{'v', 0, 0, 0, 0}); err != nil {
		t.Fatalf("failed to remove element: %v", err)
	}

	v = openStringVector(t, store)
	if _, err := v.SwapRemove(0); !errors.Is(err, ErrInconsistentState) {
		t.Errorf("expected inconsistent state, got %v", err)
	}
	if v.Len() != 3 {
		t.Errorf("length should be unchanged, got %d", v.Len())
	}
	if value, err := v.At(2); err != nil || value != "c" {
		t.Errorf("last element should be unchanged, got %q, err %v", value, err)
	}
}

func TestVector_SwapRemoveFailureLeavesVectorIntact(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b", "c"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if _, err := store.Write([]byte{'v', 0, 0, 0, 0}, []byte{0xFF}); err != nil {
		t.Fatalf("failed to corrupt store: %v", err)
	}
	v = openStringVector(t, store)
	if _, err := v.SwapRemove(0); !errors.Is(err, ErrDeserialization) {
		t.Errorf("expected deserialization error, got %v", err)
	}
	if v.Len() != 3 {
		t.Errorf("length should be unchanged, got %d", v.Len())
	}
	if value, err := v.At(2); err != nil || value != "c" {
		t.Errorf("last element should be unchanged, got %q, err %v", value, err)
	}
}

func TestVector_CanBeEmbeddedAsDescriptor(t *testing.T) {
	store := memory.NewStore()
	v := newStringVector(store)
	if err := v.Extend([]string{"a", "b"}); err != nil {
		t.Fatalf("failed to extend: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	data, err := v.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if diff := cmp.Diff([]byte{2, 0, 0, 0, 1, 0, 0, 0, 'v'}, data); diff != "" {
		t.Errorf("unexpected descriptor (-want +got):\n%s", diff)
	}

	restored, err := OpenVectorFromBinary[string](store, data, common.StringCodec{})
	if err != nil {
		t.Fatalf("failed to restore vector: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, getElements(t, restored)); diff != "" {
		t.Errorf("unexpected elements (-want +got):\n%s", diff)
	}
	if _, err := OpenVectorFromBinary[string](store, data[:3], common.StringCodec{}); !errors.Is(err, ErrDeserialization) {
		t.Errorf("expected deserialization error for truncated descriptor, got %v", err)
	}
}

func TestVector_OnlyElementsWithinBoundsArePresent(t *testing.T) {
	store := memory.NewStore()
	v := NewVector[uint64](store, []byte("r"), common.Uint64Codec{})
	reference := []uint64{}
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		switch op := rnd.Intn(10); {
		case op < 5:
			value := rnd.Uint64()
			if err := v.Push(value); err != nil {
				t.Fatalf("failed to push: %v", err)
			}
			reference = append(reference, value)
		case op < 7:
			value, found, err := v.Pop()
			if err != nil {
				t.Fatalf("failed to pop: %v", err)
			}
			if found != (len(reference) > 0) {
				t.Fatalf("unexpected pop presence %t", found)
			}
			if found {
				if want := reference[len(reference)-1]; value != want {
					t.Fatalf("unexpected pop result, wanted %d, got %d", want, value)
				}
				reference = reference[:len(reference)-1]
			}
		case op < 9:
			if len(reference) == 0 {
				continue
			}
			index := rnd.Intn(len(reference))
			removed, err := v.SwapRemove(uint32(index))
			if err != nil {
				t.Fatalf("failed to swap-remove: %v", err)
			}
			if removed != reference[index] {
				t.Fatalf("unexpected swap-remove result")
			}
			reference[index] = reference[len(reference)-1]
			reference = reference[:len(reference)-1]
		default:
			if err := v.Flush(); err != nil {
				t.Fatalf("failed to flush: %v", err)
			}
			var err error
			if v, err = OpenVector[uint64](store, []byte("r"), common.Uint64Codec{}); err != nil {
				t.Fatalf("failed to reopen: %v", err)
			}
		}

		if v.Len() != uint32(len(reference)) {
			t.Fatalf("unexpected length, wanted %d, got %d", len(reference), v.Len())
		}
		for j := uint32(0); j < v.Len()+3; j++ {
			value, found, err := v.Get(j)
			if err != nil {
				t.Fatalf("failed to get: %v", err)
			}
			if found != (j < v.Len()) {
				t.Fatalf("presence of %d should match the bounds of length %d", j, v.Len())
			}
			if found && value != reference[j] {
				t.Fatalf("unexpected element %d, wanted %d, got %d", j, reference[j], value)
			}
		}
	}
}

func TestVector_ElementsAreLoadedLazily(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := kv.NewMockStore(ctrl)
	store.EXPECT().Read([]byte("v")).Return([]byte{100, 0, 0, 0}, true, nil)
	store.EXPECT().Read([]byte{'v', 42, 0, 0, 0}).Return([]byte{1, 0, 0, 0, 'x'}, true, nil)

	v := openStringVector(t, store)
	if v.Len() != 100 {
		t.Fatalf("unexpected length, wanted 100, got %d", v.Len())
	}
	if value, err := v.At(42); err != nil || value != "x" {
		t.Errorf("unexpected element, got %q, err %v", value, err)
	}
}
