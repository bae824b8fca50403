package memory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSummarizer records its inputs and returns a canned summary.
type fakeSummarizer struct {
	calls  int
	turns  [][]core.Turn
	priors []string
	err    error
	reply  string
}

func (f *fakeSummarizer) Summarize(_ context.Context, turns []core.Turn, prior string) (string, error) {
	f.calls++
	f.turns = append(f.turns, turns)
	f.priors = append(f.priors, prior)
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return fmt.Sprintf("summary of %d entries", len(turns)), nil
}

func newController(t *testing.T, s memory.Summarizer, opts ...memory.Option) *memory.Controller {
	t.Helper()
	c, err := memory.NewController(context.Background(), s, opts...)
	require.NoError(t, err)
	return c
}

func record(t *testing.T, c *memory.Controller, n int) {
	t.Helper()
	ctx := context.Background()
	for range n {
		turn := c.TurnCount() + 1
		require.NoError(t, c.RecordTurn(ctx, fmt.Sprintf("q%d", turn), fmt.Sprintf("a%d", turn)))
		require.NoError(t, c.MaybeCutover(ctx, c.TurnCount()))
	}
}

func TestNewController_Validation(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}

	tests := []struct {
		name       string
		summarizer memory.Summarizer
		opts       []memory.Option
		wantErr    error
	}{
		{name: "nil summarizer", summarizer: nil, wantErr: memory.ErrSummarizerRequired},
		{name: "zero cutover", summarizer: s, opts: []memory.Option{memory.WithCutoverEvery(0)}, wantErr: core.ErrInvalidArgument},
		{name: "zero window", summarizer: s, opts: []memory.Option{memory.WithWindow(0)}, wantErr: core.ErrInvalidArgument},
		{name: "nil store", summarizer: s, opts: []memory.Option{memory.WithSessionStore(nil, "s1")}, wantErr: core.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := memory.NewController(ctx, tt.summarizer, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestController_CutoverCadence(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}
	c := newController(t, s)

	for turn := 1; turn <= 9; turn++ {
		require.NoError(t, c.RecordTurn(ctx, fmt.Sprintf("q%d", turn), fmt.Sprintf("a%d", turn)))
		require.NoError(t, c.MaybeCutover(ctx, c.TurnCount()))

		short, err := c.ShortTerm(ctx)
		require.NoError(t, err)
		assert.Len(t, short, 2*turn, "turn %d", turn)
		assert.Empty(t, c.LongTerm(), "turn %d", turn)
	}
	assert.Zero(t, s.calls)

	require.NoError(t, c.RecordTurn(ctx, "q10", "a10"))
	require.NoError(t, c.MaybeCutover(ctx, 10))

	short, err := c.ShortTerm(ctx)
	require.NoError(t, err)
	assert.Empty(t, short)
	assert.Equal(t, "summary of 20 entries", c.LongTerm())
	assert.Equal(t, 10, c.TurnCount())
	assert.Equal(t, memory.StateActive, c.State())

	require.Equal(t, 1, s.calls)
	require.Len(t, s.turns[0], 20)
	assert.Equal(t, core.Turn{Role: core.RoleUser, Content: "q1"}, s.turns[0][0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "a10"}, s.turns[0][19])
}

func TestController_SummaryOverwritesLongTerm(t *testing.T) {
	s := &fakeSummarizer{}
	c := newController(t, s)

	record(t, c, 10)
	first := c.LongTerm()
	require.NotEmpty(t, first)

	s.reply = "second summary"
	record(t, c, 10)
	assert.Equal(t, "second summary", c.LongTerm())
	require.Equal(t, 2, s.calls)
	assert.Equal(t, first, s.priors[1])
	assert.Len(t, s.turns[1], 20, "only turns since the last cutover are summarized")
}

func TestController_CustomCadence(t *testing.T) {
	s := &fakeSummarizer{}
	c := newController(t, s, memory.WithCutoverEvery(3))

	record(t, c, 7)
	assert.Equal(t, 2, s.calls)

	short, err := c.ShortTerm(context.Background())
	require.NoError(t, err)
	assert.Len(t, short, 2)
}

func TestController_ResetClearsEverything(t *testing.T) {
	tests := []struct {
		name  string
		turns int
	}{
		{name: "empty", turns: 0},
		{name: "short-term only", turns: 4},
		{name: "both tiers", turns: 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := newController(t, &fakeSummarizer{})
			record(t, c, tt.turns)

			require.NoError(t, c.MaybeCutover(ctx, 0))

			short, err := c.ShortTerm(ctx)
			require.NoError(t, err)
			assert.Empty(t, short)
			assert.Empty(t, c.LongTerm())
			assert.Zero(t, c.TurnCount())
			assert.Equal(t, memory.StateCleared, c.State())
		})
	}
}

func TestController_RecordAfterReset(t *testing.T) {
	ctx := context.Background()
	c := newController(t, &fakeSummarizer{})
	record(t, c, 3)
	require.NoError(t, c.Reset(ctx))

	require.NoError(t, c.RecordTurn(ctx, "again", "sure"))
	assert.Equal(t, 1, c.TurnCount())
	assert.Equal(t, memory.StateActive, c.State())
}

func TestController_SummarizerFailureKeepsShortTerm(t *testing.T) {
	tests := []struct {
		name    string
		s       *fakeSummarizer
		wantErr error
	}{
		{name: "error", s: &fakeSummarizer{err: core.ErrTransientTransport}, wantErr: core.ErrTransientTransport},
		{name: "blank summary", s: &fakeSummarizer{reply: "   "}, wantErr: memory.ErrEmptySummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c := newController(t, tt.s)
			for turn := 1; turn <= 10; turn++ {
				require.NoError(t, c.RecordTurn(ctx, "q", "a"))
			}

			err := c.MaybeCutover(ctx, 10)
			assert.ErrorIs(t, err, tt.wantErr)

			short, err := c.ShortTerm(ctx)
			require.NoError(t, err)
			assert.Len(t, short, 20)
			assert.Empty(t, c.LongTerm())
			assert.Equal(t, memory.StateActive, c.State())
		})
	}
}

func TestController_MaybeCutoverIgnoresOtherCounts(t *testing.T) {
	ctx := context.Background()
	s := &fakeSummarizer{}
	c := newController(t, s)
	for range 3 {
		require.NoError(t, c.RecordTurn(ctx, "q", "a"))
	}

	for _, n := range []int{1, 5, 9, 11, 15} {
		require.NoError(t, c.MaybeCutover(ctx, n))
	}
	assert.Zero(t, s.calls)

	assert.ErrorIs(t, c.MaybeCutover(ctx, -1), core.ErrInvalidArgument)
}

func TestController_CutoverWithEmptyShortTerm(t *testing.T) {
	s := &fakeSummarizer{}
	c := newController(t, s)

	require.NoError(t, c.MaybeCutover(context.Background(), 10))
	assert.Zero(t, s.calls)
}

func TestController_Recent(t *testing.T) {
	ctx := context.Background()
	c := newController(t, &fakeSummarizer{})

	recent, err := c.Recent(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)

	record(t, c, 4)
	recent, err = c.Recent(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "a2"}, recent[0])
	assert.Equal(t, core.Turn{Role: core.RoleAssistant, Content: "a4"}, recent[4])

	wide := newController(t, &fakeSummarizer{}, memory.WithWindow(50))
	record(t, wide, 4)
	recent, err = wide.Recent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 8)
}

func TestController_Snapshot(t *testing.T) {
	ctx := context.Background()
	c := newController(t, &fakeSummarizer{}, memory.WithCutoverEvery(2))
	record(t, c, 3)

	state, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.MemoryState{
		ShortTerm: []core.Turn{
			{Role: core.RoleUser, Content: "q3"},
			{Role: core.RoleAssistant, Content: "a3"},
		},
		LongTerm:  "summary of 4 entries",
		TurnCount: 3,
	}, state)
}

func TestController_SessionStore(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := badger.NewMemorySessionRepository()
	require.NoError(t, err)
	defer backend.Close()

	s := &fakeSummarizer{}
	c := newController(t, s, memory.WithSessionStore(repo, "session-1"))
	record(t, c, 12)

	resumed := newController(t, s, memory.WithSessionStore(repo, "session-1"))
	assert.Equal(t, 12, resumed.TurnCount())
	assert.Equal(t, c.LongTerm(), resumed.LongTerm())
	short, err := resumed.ShortTerm(ctx)
	require.NoError(t, err)
	assert.Len(t, short, 4)

	require.NoError(t, resumed.Reset(ctx))
	_, err = repo.GetSession(ctx, "session-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	fresh := newController(t, s, memory.WithSessionStore(repo, "session-1"))
	assert.Zero(t, fresh.TurnCount())
}

// failingStore fails every call.
type failingStore struct{}

var errStore = errors.New("store down")

func (failingStore) SaveSession(context.Context, *storage.Session) (*storage.Session, error) {
	return nil, errStore
}
func (failingStore) GetSession(context.Context, string) (*storage.Session, error) {
	return nil, storage.ErrNotFound
}
func (failingStore) DeleteSession(context.Context, string) error { return errStore }
func (failingStore) GetRecentSessions(context.Context, int) ([]*storage.Session, error) {
	return nil, errStore
}
func (failingStore) Close() error { return nil }

func TestController_SessionStoreFailure(t *testing.T) {
	ctx := context.Background()
	c := newController(t, &fakeSummarizer{}, memory.WithSessionStore(failingStore{}, "s1"))

	err := c.RecordTurn(ctx, "q", "a")
	assert.ErrorIs(t, err, errStore)
	assert.Equal(t, 1, c.TurnCount(), "in-memory state is kept when saving fails")

	assert.ErrorIs(t, c.Reset(ctx), errStore)
	assert.Zero(t, c.TurnCount())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "active", memory.StateActive.String())
	assert.Equal(t, "summarizing", memory.StateSummarizing.String())
	assert.Equal(t, "cleared", memory.StateCleared.String())
	assert.Equal(t, "State(9)", memory.State(9).String())
}
