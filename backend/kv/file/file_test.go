// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Fantom-foundation/Stash/common"
	"github.com/google/go-cmp/cmp"
)

func TestStore_SnapshotFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.Write([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if _, err := store.Write([]byte("a"), []byte{}); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	want := []byte{
		1, 0, 0, 0, 'a', 0, 0, 0, 0,
		1, 0, 0, 0, 'b', 1, 0, 0, 0, '2',
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected snapshot (-want +got):\n%s", diff)
	}
}

func TestStore_FlushWithoutModificationsKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()
	if err := store.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, fileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("clean store should not write a snapshot, got %v", err)
	}
	if _, err := store.Remove([]byte("missing")); err != nil {
		t.Fatalf("failed to remove: %v", err)
	}
	if store.dirty {
		t.Errorf("removing a missing key should not modify the store")
	}
}

func TestStore_UnflushedModificationsAreLostOnCrash(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.Write([]byte("a"), []byte("1")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if err := store.Flush(); err != nil {
		t.Fatalf("failed to flush: %v", err)
	}
	if _, err := store.Write([]byte("b"), []byte("2")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	// The store is not closed, simulating a crash.
	recovered, err := OpenStore(dir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer recovered.Close()
	if _, found, _ := recovered.Read([]byte("a")); !found {
		t.Errorf("flushed entry should be present")
	}
	if _, found, _ := recovered.Read([]byte("b")); found {
		t.Errorf("unflushed entry should be absent")
	}
}

func TestStore_CorruptedSnapshotIsReported(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte{5, 0, 0, 0, 'a'}, 0600); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	if _, err := OpenStore(dir); !errors.Is(err, common.ErrUnexpectedEnd) {
		t.Errorf("expected decoding error, got %v", err)
	}
}
