package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/vectordb"
	"github.com/poiesic/docchat/vectordb/chromem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type staticRetriever struct{}

func (staticRetriever) Retrieve(context.Context, string, int) ([]core.ScoredChunk, error) {
	return []core.ScoredChunk{{Chunk: core.Chunk{Text: "Docchat answers from documents."}, Score: 1}}, nil
}

type fixedSummarizer struct{}

func (fixedSummarizer) Summarize(context.Context, []core.Turn, string) (string, error) {
	return "the user asked about docchat", nil
}

func newTestService(t *testing.T, opts ...memory.Option) *chat.Service {
	t.Helper()
	model := mock.NewMockChatModel()
	model.GenerateFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "It answers from documents.", nil
	}
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), model)
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		return provider, nil
	})
	ctrl, err := memory.NewController(context.Background(), fixedSummarizer{}, append([]memory.Option{memory.WithCutoverEvery(2)}, opts...)...)
	require.NoError(t, err)
	svc, err := chat.NewService(staticRetriever{}, cache, ctrl)
	require.NoError(t, err)
	return svc
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommands(t *testing.T) {
	app := newApp()

	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{"ingest", "count", "collections", "chat", "search", "ask"}, names)

	collections := findCommand(t, app, "collections")
	require.Len(t, collections.Subcommands, 2)
	assert.Equal(t, "list", collections.Subcommands[0].Name)
	assert.Equal(t, "delete", collections.Subcommands[1].Name)
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "ingest")

	for _, flag := range cmd.Flags {
		switch f := flag.(type) {
		case *cli.IntFlag:
			switch f.Name {
			case "batch-size":
				assert.Equal(t, ingestion.DefaultBatchSize, f.Value, "batch-size default")
			case "concurrency":
				assert.Equal(t, 1, f.Value, "concurrency default")
			default:
				t.Errorf("unexpected int flag %q", f.Name)
			}
		case *cli.BoolFlag:
			assert.Contains(t, []string{"overwrite", "content-ids"}, f.Name)
			assert.False(t, f.Value, "%s should default to false", f.Name)
		default:
			t.Errorf("unexpected flag type %T", flag)
		}
	}
}

func TestChatCommandFlags(t *testing.T) {
	for _, name := range []string{"chat", "ask"} {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(t, newApp(), name)
			var found bool
			for _, flag := range cmd.Flags {
				if f, ok := flag.(*cli.IntFlag); ok && f.Name == "k" {
					found = true
					assert.Equal(t, chat.DefaultK, f.Value)
				}
			}
			assert.True(t, found, "k flag missing")
		})
	}
}

func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "ingest without file", args: []string{"docchat", "ingest"}, want: "exactly one file"},
		{name: "ingest with two files", args: []string{"docchat", "ingest", "a.pdf", "b.pdf"}, want: "exactly one file"},
		{name: "delete without name", args: []string{"docchat", "collections", "delete"}, want: "exactly one collection"},
		{name: "search without query", args: []string{"docchat", "search"}, want: "requires a query"},
		{name: "ask without question", args: []string{"docchat", "ask", "  "}, want: "requires a question"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newApp().Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "debug"},
		{input: "info"},
		{input: "WaRn"},
		{input: "ERROR"},
		{input: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			app := &cli.App{
				Name: "test",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info"},
				},
				Before: setupLogger,
				Action: func(c *cli.Context) error {
					return nil
				},
			}

			err := app.Run([]string{"test", "-l", tt.input})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSearchCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "search")
	floats := map[string]float64{}
	for _, flag := range cmd.Flags {
		if f, ok := flag.(*cli.Float64Flag); ok {
			floats[f.Name] = f.Value
		}
	}
	assert.Equal(t, map[string]float64{"min-score": 0, "keyword-boost": 0}, floats)
}

func TestSearchOptions(t *testing.T) {
	tests := []struct {
		name         string
		minScore     float64
		keywordBoost float64
		want         int
	}{
		{name: "defaults", want: 0},
		{name: "min score", minScore: 0.5, want: 1},
		{name: "both", minScore: 0.5, keywordBoost: 2, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, searchOptions(tt.minScore, tt.keywordBoost), tt.want)
		})
	}
}

func TestSearchOptions_NegativeBoostRejected(t *testing.T) {
	db := chromem.NewMemory()
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		return mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockChatModel()), nil
	})
	_, err := search.NewRetriever(vectordb.Static(db), cache, "docs", searchOptions(0, -1)...)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestPrintHits(t *testing.T) {
	var out bytes.Buffer
	printHits(&out, []core.ScoredChunk{
		{Chunk: core.Chunk{Text: "first"}, Source: "chunk_0", Score: 0.91234},
		{Chunk: core.Chunk{Text: "second"}, Source: "chunk_3", Score: 0.5},
	})
	assert.Equal(t, "Found 2 hits\n0: 'first' (chunk_0)[0.912]\n1: 'second' (chunk_3)[0.500]\n", out.String())
}

func TestNewSessionID(t *testing.T) {
	a := newSessionID()
	b := newSessionID()
	assert.NotEqual(t, a, b)

	_, err := ulid.Parse(a)
	assert.NoError(t, err)
}

func TestRepl(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	in := strings.NewReader("What is docchat?\n\n/history\n/unknown\n/exit\nnever read\n")
	var out bytes.Buffer
	require.NoError(t, repl(ctx, svc, in, &out))

	text := out.String()
	assert.Contains(t, text, "It answers from documents.")
	assert.Contains(t, text, "user: What is docchat?")
	assert.Contains(t, text, "assistant: It answers from documents.")
	assert.Contains(t, text, "Unknown command /unknown")
	assert.Equal(t, 1, svc.Memory().TurnCount())
}

func TestRepl_SummaryAndReset(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	in := strings.NewReader("/summary\nfirst\nsecond\n/summary\n/reset\n/history\n")
	var out bytes.Buffer
	require.NoError(t, repl(ctx, svc, in, &out))

	text := out.String()
	assert.Contains(t, text, "No summary yet.")
	assert.Contains(t, text, "the user asked about docchat")
	assert.Contains(t, text, "Conversation memory cleared.")
	assert.Contains(t, text, "No recent messages.")
	assert.Zero(t, svc.Memory().TurnCount())
	assert.Empty(t, svc.Memory().LongTerm())
}

func TestRepl_CommandFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := badger.NewMemorySessionRepository()
	require.NoError(t, err)
	svc := newTestService(t, memory.WithSessionStore(repo, "session-1"))

	svc.Ask(ctx, "What is docchat?")
	require.NoError(t, backend.Close())

	in := strings.NewReader("/reset\n/help\n/exit\n")
	var out bytes.Buffer
	require.NoError(t, repl(ctx, svc, in, &out))

	text := out.String()
	assert.Contains(t, text, chat.ReplyTrouble)
	assert.NotContains(t, text, "storage is closed")
	assert.NotContains(t, text, "Conversation memory cleared.")
	assert.Contains(t, text, "/exit     end the session")
}
