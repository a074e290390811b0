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
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/backend/kv/memory"
	"github.com/Fantom-foundation/Stash/common"
	"github.com/natefinch/atomic"
)

func init() {
	kv.RegisterStoreFactory(kv.FileVariant, func(params kv.Parameters) (kv.PersistentStore, error) {
		return OpenStore(params.Directory)
	})
}

const fileName = "store.dat"

// Store keeps all entries in memory and persists them as a single snapshot
// file on Flush and Close. Snapshots are replaced atomically, so a crash leaves
// either the old or the new snapshot on disk.
type Store struct {
	path   string
	data   *memory.Store
	dirty  bool
	closed bool
}

// OpenStore opens the store in the given directory, loading the content of an
// existing snapshot if present.
func OpenStore(directory string) (*Store, error) {
	if directory == "" {
		return nil, fmt.Errorf("%w: the file store requires a directory", kv.UnsupportedConfiguration)
	}
	if err := os.MkdirAll(directory, 0700); err != nil {
		return nil, err
	}
	path := filepath.Join(directory, fileName)
	data := memory.NewStore()
	content, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := parseSnapshot(content, data); err != nil {
			return nil, fmt.Errorf("failed to load %s; %w", path, err)
		}
	}
	return &Store{path: path, data: data}, nil
}

func parseSnapshot(content []byte, store *memory.Store) error {
	codec := common.BytesCodec{}
	for len(content) > 0 {
		key, n, err := codec.Consume(content)
		if err != nil {
			return err
		}
		content = content[n:]
		value, n, err := codec.Consume(content)
		if err != nil {
			return err
		}
		content = content[n:]
		if _, err := store.Write(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	if s.closed {
		return nil, false, kv.ErrClosed
	}
	return s.data.Read(key)
}

func (s *Store) Write(key, value []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	s.dirty = true
	return s.data.Write(key, value)
}

func (s *Store) Remove(key []byte) (bool, error) {
	if s.closed {
		return false, kv.ErrClosed
	}
	existed, err := s.data.Remove(key)
	if existed {
		s.dirty = true
	}
	return existed, err
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) error {
	if s.closed {
		return kv.ErrClosed
	}
	return s.data.ForEach(prefix, callback)
}

// Flush writes a new snapshot if the content changed since the last one.
func (s *Store) Flush() error {
	if s.closed {
		return kv.ErrClosed
	}
	if !s.dirty {
		return nil
	}
	codec := common.BytesCodec{}
	var buffer []byte
	err := s.data.ForEach(nil, func(key, value []byte) error {
		var err error
		if buffer, err = codec.Append(buffer, key); err != nil {
			return err
		}
		buffer, err = codec.Append(buffer, value)
		return err
	})
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(buffer)); err != nil {
		return fmt.Errorf("failed to write %s; %w", s.path, err)
	}
	s.dirty = false
	return nil
}

func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	err := s.Flush()
	s.closed = true
	return errors.Join(err, s.data.Close())
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	mf := common.NewMemoryFootprint(unsafe.Sizeof(*s))
	mf.AddChild("data", s.data.GetMemoryFootprint())
	return mf
}
