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
	"fmt"
	"log"

	"github.com/Fantom-foundation/Stash/backend/kv"
	"github.com/Fantom-foundation/Stash/common"
)

// ReentrancyGuardKey is the store key marking an active guarded session.
const ReentrancyGuardKey = "__REENTRANCY_GUARD__"

// SessionConfig defines the properties of a session.
type SessionConfig struct {
	// ReadOnly sessions reject all modifications of the store.
	ReadOnly bool
	// ReentrancyGuard prevents nested guarded sessions on the same store.
	ReentrancyGuard bool
}

// Session is the scope of a sequence of operations on collections sharing a
// store. Collections registered with a session are flushed when the session
// is closed.
type Session struct {
	store   kv.Store
	config  SessionConfig
	tracked []common.Flusher
	guarded bool
	closed  bool
}

// OpenSession starts a session on the given store.
func OpenSession(store kv.Store, config SessionConfig) (*Session, error) {
	if config.ReadOnly {
		store = kv.ReadOnly(store)
	}
	res := &Session{store: store, config: config}
	if config.ReentrancyGuard {
		if err := res.acquireGuard(); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Session) acquireGuard() error {
	key := []byte(ReentrancyGuardKey)
	if s.config.ReadOnly {
		_, found, err := s.store.Read(key)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%w: guard is held by another session", ErrReentrantSession)
		}
		return nil
	}
	existed, err := s.store.Write(key, []byte{})
	if err != nil {
		return err
	}
	if existed {
		return fmt.Errorf("%w: guard is held by another session", ErrReentrantSession)
	}
	s.guarded = true
	return nil
}

// Store returns the store collections of this session should operate on. For
// read-only sessions, the store rejects modifications.
func (s *Session) Store() kv.Store {
	return s.store
}

// Track registers a collection to be flushed when the session is closed.
// Collections are flushed in the order they were registered.
func (s *Session) Track(collection common.Flusher) {
	s.tracked = append(s.tracked, collection)
}

// Tracked registers the given collection with the session and returns it.
func Tracked[C common.Flusher](session *Session, collection C) C {
	session.Track(collection)
	return collection
}

// Flush flushes all tracked collections. All collections are flushed even if
// some of them fail.
func (s *Session) Flush() error {
	errs := make([]error, 0, len(s.tracked))
	for _, collection := range s.tracked {
		errs = append(errs, collection.Flush())
	}
	return errors.Join(errs...)
}

// Close flushes all tracked collections and releases the reentrancy guard.
// Closing a session a second time has no effect.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	return errors.Join(s.Flush(), s.release())
}

// Abort ends the session without flushing the tracked collections, dropping
// all modifications staged since their last flush. The reentrancy guard is
// released.
func (s *Session) Abort() error {
	if s.closed {
		return nil
	}
	return s.release()
}

func (s *Session) release() error {
	s.closed = true
	s.tracked = nil
	if !s.guarded {
		return nil
	}
	s.guarded = false
	if _, err := s.store.Remove([]byte(ReentrancyGuardKey)); err != nil {
		return fmt.Errorf("failed to release reentrancy guard; %w", err)
	}
	return nil
}

// Run executes the given function within a session on the store. If the
// function succeeds, all collections tracked by the session are flushed.
// If it fails or panics, staged modifications are dropped, so the store
// retains only what has been flushed explicitly.
func Run(store kv.Store, config SessionConfig, run func(*Session) error) (err error) {
	session, err := OpenSession(store, config)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if abortErr := session.Abort(); abortErr != nil {
				log.Printf("failed to abort session: %v", abortErr)
			}
			panic(r)
		}
		if err != nil {
			err = errors.Join(err, session.Abort())
		} else {
			err = session.Close()
		}
	}()
	return run(session)
}
