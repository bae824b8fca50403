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

package storage

import (
	"context"
	"time"

	"github.com/poiesic/docchat/core"
)

// Session is the persisted memory of one conversation.
type Session struct {
	ID        string
	State     core.MemoryState
	UpdatedAt time.Time
}

// SessionRepository stores conversation memory between runs.
type SessionRepository interface {
	// SaveSession creates or replaces a session.
	// Sets UpdatedAt and returns the stored session.
	SaveSession(ctx context.Context, session *Session) (*Session, error)

	// GetSession retrieves a session by ID.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session and its indices.
	// Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// GetRecentSessions returns up to limit sessions, most recently updated first.
	GetRecentSessions(ctx context.Context, limit int) ([]*Session, error)

	// Close releases resources held by the repository.
	Close() error
}
