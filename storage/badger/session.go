// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a repository on backend.
// The backend is owned by the caller.
func NewSessionRepository(backend *Backend) *SessionRepository {
	return &SessionRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *SessionRepository) Close() error {
	return nil
}

// SaveSession creates or replaces a session.
func (r *SessionRepository) SaveSession(ctx context.Context, session *storage.Session) (*storage.Session, error) {
	if session == nil || core.IsBlank(session.ID) {
		return nil, fmt.Errorf("%w: session id required", core.ErrInvalidArgument)
	}

	stored := *session
	stored.State.ShortTerm = append([]core.Turn(nil), session.State.ShortTerm...)
	stored.UpdatedAt = time.Now().UTC()

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(stored.ID)

		// Drop the date index entry of the previous version
		old, err := r.readSession(tx, key)
		if err != nil {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeSessionDateKey(old.UpdatedAt, old.ID)); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalSession(&stored)); err != nil {
			return err
		}
		if err := tx.Set(makeSessionDateKey(stored.UpdatedAt, stored.ID), nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	r.backend.logger.Debug("saved session", "session", stored.ID, "turns", stored.State.TurnCount)
	return &stored, nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (*storage.Session, error) {
	var session *storage.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		session, err = r.readSession(tx, makeSessionKey(id))
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return session, nil
}

// DeleteSession removes a session and its date index entry.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(id)
		old, err := r.readSession(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return nil
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Delete(makeSessionDateKey(old.UpdatedAt, old.ID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRecentSessions returns up to limit sessions, most recently updated first.
func (r *SessionRepository) GetRecentSessions(ctx context.Context, limit int) ([]*storage.Session, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var sessions []*storage.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(sessionDatePrefix)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration has to start past the last key with the prefix
		seek := append(append([]byte{}, prefix...), 0xFF)
		for iter.Seek(seek); iter.ValidForPrefix(prefix) && len(sessions) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix)+8 {
				continue
			}
			id := string(key[len(prefix)+8:])

			session, err := r.readSession(tx, makeSessionKey(id))
			if err != nil {
				return err
			}
			if session != nil {
				sessions = append(sessions, session)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// readSession returns nil without error when the key is absent.
func (r *SessionRepository) readSession(tx *badger.Txn, key []byte) (*storage.Session, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session *storage.Session
	err = item.Value(func(val []byte) error {
		var err error
		session, err = storage.UnmarshalSession(val)
		return err
	})
	return session, err
}
