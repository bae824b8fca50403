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

package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/storage"
	lcmemory "github.com/tmc/langchaingo/memory"
)

const (
	DefaultCutoverEvery = 10
	DefaultWindow       = 5
)

// State is the lifecycle state of a Controller.
type State int

const (
	StateActive State = iota
	StateSummarizing
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSummarizing:
		return "summarizing"
	case StateCleared:
		return "cleared"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Summarizer condenses a run of turns into a single summary.
type Summarizer interface {
	// Summarize returns a summary of turns. prior is the current long-term
	// summary and may be empty.
	Summarize(ctx context.Context, turns []core.Turn, prior string) (string, error)
}

// Controller owns the short-term and long-term memory of one session.
// It is not safe for concurrent use.
type Controller struct {
	summarizer   Summarizer
	history      *lcmemory.ChatMessageHistory
	longTerm     string
	turnCount    int
	state        State
	cutoverEvery int
	window       int
	store        storage.SessionRepository
	sessionID    string
	logger       *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller) error

// WithCutoverEvery sets how many turns pass between summaries.
// Default is 10.
func WithCutoverEvery(n int) Option {
	return func(c *Controller) error {
		if n < 1 {
			return fmt.Errorf("%w: cutover interval must be at least 1", core.ErrInvalidArgument)
		}
		c.cutoverEvery = n
		return nil
	}
}

// WithWindow sets how many short-term entries Recent returns.
// Default is 5.
func WithWindow(n int) Option {
	return func(c *Controller) error {
		if n < 1 {
			return fmt.Errorf("%w: window must be at least 1", core.ErrInvalidArgument)
		}
		c.window = n
		return nil
	}
}

// WithSessionStore persists the memory state under sessionID. The stored
// state is loaded when the Controller is created and saved after every
// change.
func WithSessionStore(store storage.SessionRepository, sessionID string) Option {
	return func(c *Controller) error {
		if store == nil {
			return fmt.Errorf("%w: session store must not be nil", core.ErrInvalidArgument)
		}
		if core.IsBlank(sessionID) {
			return fmt.Errorf("%w: session id must not be blank", core.ErrInvalidArgument)
		}
		c.store = store
		c.sessionID = sessionID
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewController creates a Controller with empty tiers, or with the stored
// state of the session when WithSessionStore is given.
func NewController(ctx context.Context, summarizer Summarizer, opts ...Option) (*Controller, error) {
	if summarizer == nil {
		return nil, ErrSummarizerRequired
	}

	c := &Controller{
		summarizer:   summarizer,
		history:      lcmemory.NewChatMessageHistory(),
		state:        StateActive,
		cutoverEvery: DefaultCutoverEvery,
		window:       DefaultWindow,
		logger:       slog.Default().With("component", "memory"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.store != nil {
		c.logger = c.logger.With("session", c.sessionID)
		if err := c.load(ctx); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordTurn appends the question and its answer to the short-term tier and
// advances the turn counter.
func (c *Controller) RecordTurn(ctx context.Context, question, answer string) error {
	if err := c.history.AddUserMessage(ctx, question); err != nil {
		return fmt.Errorf("failed to record question: %w", err)
	}
	if err := c.history.AddAIMessage(ctx, answer); err != nil {
		return fmt.Errorf("failed to record answer: %w", err)
	}
	c.turnCount++
	c.state = StateActive
	c.logger.Debug("recorded turn", "turn", c.turnCount)
	return c.save(ctx)
}

// MaybeCutover applies the cutover schedule for turnCount.
//
// A positive multiple of the cutover interval summarizes the short-term tier
// into the long-term tier and empties the short-term tier. Zero clears both
// tiers and the counter. Any other count does nothing.
//
// When the summarizer fails the short-term tier is kept and the error is
// returned.
func (c *Controller) MaybeCutover(ctx context.Context, turnCount int) error {
	switch {
	case turnCount < 0:
		return fmt.Errorf("%w: turn count must not be negative", core.ErrInvalidArgument)
	case turnCount == 0:
		return c.clear(ctx)
	case turnCount%c.cutoverEvery == 0:
		return c.summarize(ctx, turnCount)
	default:
		return nil
	}
}

// Reset clears both tiers and the counter. It is MaybeCutover(ctx, 0).
func (c *Controller) Reset(ctx context.Context) error {
	return c.MaybeCutover(ctx, 0)
}

// Recent returns the newest short-term entries, up to the window size,
// oldest first.
func (c *Controller) Recent(ctx context.Context) ([]core.Turn, error) {
	turns, err := c.ShortTerm(ctx)
	if err != nil {
		return nil, err
	}
	if len(turns) > c.window {
		turns = turns[len(turns)-c.window:]
	}
	return turns, nil
}

// ShortTerm returns every entry of the short-term tier, oldest first.
func (c *Controller) ShortTerm(ctx context.Context) ([]core.Turn, error) {
	msgs, err := c.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read short-term memory: %w", err)
	}
	return Turns(msgs), nil
}

// LongTerm returns the current summary, or "" when there is none.
func (c *Controller) LongTerm() string {
	return c.longTerm
}

// TurnCount returns the number of turns recorded since the last clear.
func (c *Controller) TurnCount() int {
	return c.turnCount
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Snapshot returns a copy of the full memory state.
func (c *Controller) Snapshot(ctx context.Context) (core.MemoryState, error) {
	turns, err := c.ShortTerm(ctx)
	if err != nil {
		return core.MemoryState{}, err
	}
	return core.MemoryState{
		ShortTerm: turns,
		LongTerm:  c.longTerm,
		TurnCount: c.turnCount,
	}, nil
}

func (c *Controller) summarize(ctx context.Context, turnCount int) error {
	turns, err := c.ShortTerm(ctx)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		c.logger.Debug("short-term memory empty, nothing to summarize", "turn", turnCount)
		return nil
	}

	c.state = StateSummarizing
	summary, err := c.summarizer.Summarize(ctx, turns, c.longTerm)
	if err == nil && core.IsBlank(summary) {
		err = ErrEmptySummary
	}
	if err != nil {
		c.state = StateActive
		c.logger.Error("memory cutover failed, keeping short-term memory", "turn", turnCount, "entries", len(turns), "err", err)
		return fmt.Errorf("failed to summarize %d entries: %w", len(turns), err)
	}

	if err := c.history.Clear(ctx); err != nil {
		c.state = StateActive
		return fmt.Errorf("failed to clear short-term memory: %w", err)
	}
	c.longTerm = summary
	c.state = StateActive
	c.logger.Info("summarized short-term memory", "turn", turnCount, "entries", len(turns), "summary_len", len(summary))
	return c.save(ctx)
}

func (c *Controller) clear(ctx context.Context) error {
	if err := c.history.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear short-term memory: %w", err)
	}
	c.longTerm = ""
	c.turnCount = 0
	c.state = StateCleared
	c.logger.Info("cleared all memory")

	if c.store == nil {
		return nil
	}
	if err := c.store.DeleteSession(ctx, c.sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (c *Controller) load(ctx context.Context) error {
	session, err := c.store.GetSession(ctx, c.sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		c.logger.Debug("starting new session")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if err := c.history.SetMessages(ctx, Messages(session.State.ShortTerm)); err != nil {
		return fmt.Errorf("failed to restore short-term memory: %w", err)
	}
	c.longTerm = session.State.LongTerm
	c.turnCount = session.State.TurnCount
	c.logger.Info("resumed session", "turns", c.turnCount, "entries", len(session.State.ShortTerm))
	return nil
}

func (c *Controller) save(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	state, err := c.Snapshot(ctx)
	if err != nil {
		return err
	}
	if _, err := c.store.SaveSession(ctx, &storage.Session{ID: c.sessionID, State: state}); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
