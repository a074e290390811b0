// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqlite

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	kv.RegisterStoreFactory(kv.SqliteVariant, func(params kv.Parameters) (kv.PersistentStore, error) {
		if params.Directory == "" {
			return nil, fmt.Errorf("%w: the SQLite store requires a directory", kv.UnsupportedConfiguration)
		}
		if err := os.MkdirAll(params.Directory, 0700); err != nil {
			return nil, err
		}
		return OpenStore(filepath.Join(params.Directory, "store.sqlite"))
	})
}

var (
	// See https://www.sqlite.org/pragma.html
	kConfigureConnection = []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA locking_mode = EXCLUSIVE",
	}
)

const (
	kCreateTable = "CREATE TABLE IF NOT EXISTS kv (key BLOB PRIMARY KEY, value BLOB)"
	kGetStmt     = "SELECT value FROM kv WHERE key = ?"
	kHasStmt     = "SELECT 1 FROM kv WHERE key = ?"
	kPutStmt     = "INSERT INTO kv(key, value) VALUES (?,?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	kDeleteStmt  = "DELETE FROM kv WHERE key = ?"
	kIterateStmt = "SELECT key, value FROM kv WHERE key >= ? ORDER BY key"
)

// Store is a kv.Store implementation keeping all entries in a single table of
// an SQLite database file.
type Store struct {
	db          *sql.DB
	getStmt     *sql.Stmt
	hasStmt     *sql.Stmt
	putStmt     *sql.Stmt
	deleteStmt  *sql.Stmt
	iterateStmt *sql.Stmt
}

// OpenStore opens, or creates, the SQLite database in the given file.
func OpenStore(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", "file:"+file)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite; %w", err)
	}
	// Exclusive locking mode binds the database to a single connection.
	db.SetMaxOpenConns(1)
	res, err := initStore(db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return res, nil
}

func initStore(db *sql.DB) (*Store, error) {
	for _, cmd := range kConfigureConnection {
		if _, err := db.Exec(cmd); err != nil {
			return nil, fmt.Errorf("failed to configure connection with %s; %w", cmd, err)
		}
	}
	if _, err := db.Exec(kCreateTable); err != nil {
		return nil, fmt.Errorf("failed to create kv table; %w", err)
	}
	res := &Store{db: db}
	stmts := []struct {
		target **sql.Stmt
		query  string
	}{
		{&res.getStmt, kGetStmt},
		{&res.hasStmt, kHasStmt},
		{&res.putStmt, kPutStmt},
		{&res.deleteStmt, kDeleteStmt},
		{&res.iterateStmt, kIterateStmt},
	}
	for _, cur := range stmts {
		stmt, err := db.Prepare(cur.query)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare statement %q; %w", cur.query, err)
		}
		*cur.target = stmt
	}
	return res, nil
}

// nonNil converts nil slices to empty slices, since the driver maps nil to
// NULL, which is not a valid key.
func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}

func (s *Store) Read(key []byte) ([]byte, bool, error) {
	if s.db == nil {
		return nil, false, kv.ErrClosed
	}
	var value []byte
	err := s.getStmt.QueryRow(nonNil(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %x; %w", key, err)
	}
	// Empty values may come back as NULL.
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *Store) has(key []byte) (bool, error) {
	var one int
	err := s.hasStmt.QueryRow(nonNil(key)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check key %x; %w", key, err)
	}
	return true, nil
}

func (s *Store) Write(key, value []byte) (bool, error) {
	if s.db == nil {
		return false, kv.ErrClosed
	}
	existed, err := s.has(key)
	if err != nil {
		return false, err
	}
	if _, err := s.putStmt.Exec(nonNil(key), nonNil(value)); err != nil {
		return false, fmt.Errorf("failed to write key %x; %w", key, err)
	}
	return existed, nil
}

func (s *Store) Remove(key []byte) (bool, error) {
	if s.db == nil {
		return false, kv.ErrClosed
	}
	res, err := s.deleteStmt.Exec(nonNil(key))
	if err != nil {
		return false, fmt.Errorf("failed to remove key %x; %w", key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *Store) ForEach(prefix []byte, callback func(key, value []byte) error) (err error) {
	if s.db == nil {
		return kv.ErrClosed
	}
	prefix = nonNil(prefix)
	rows, err := s.iterateStmt.Query(prefix)
	if err != nil {
		return fmt.Errorf("failed to iterate keys; %w", err)
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		// Keys are sorted, the first key without the prefix ends the range.
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if err := callback(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Flush checkpoints the write-ahead log into the database file.
func (s *Store) Flush() error {
	if s.db == nil {
		return kv.ErrClosed
	}
	_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	flushErr := s.Flush()
	errs := []error{flushErr}
	for _, stmt := range []*sql.Stmt{s.getStmt, s.hasStmt, s.putStmt, s.deleteStmt, s.iterateStmt} {
		errs = append(errs, stmt.Close())
	}
	errs = append(errs, s.db.Close())
	s.db = nil
	return errors.Join(errs...)
}

func (s *Store) GetMemoryFootprint() *common.MemoryFootprint {
	return common.NewMemoryFootprint(unsafe.Sizeof(*s))
}
