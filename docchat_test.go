package docchat

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
	"github.com/poiesic/docchat/vectordb/chromem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

type fakeUploader struct {
	paths []string
}

func (f *fakeUploader) Upload(_ context.Context, path string) (string, error) {
	f.paths = append(f.paths, path)
	return "s3://bucket/uploads/" + filepath.Base(path), nil
}

func testConfig() *config.Config {
	return &config.Config{
		VectorBackend:    config.BackendChromem,
		QdrantCollection: "docs",
		VectorDim:        testDim,
		VectorDistance:   string(core.DistanceCosine),
	}
}

func openTestApp(t *testing.T, opts ...Option) (*App, *mock.MockProvider) {
	t.Helper()
	db := chromem.NewMemory()
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder().WithDimension(testDim), mock.NewMockChatModel())

	opts = append([]Option{
		WithVectorConstructor(func(ctx context.Context) (vectordb.Client, error) {
			return db, nil
		}),
		WithProviderFactory(func(ctx context.Context) (ai.AIProvider, error) {
			return provider, nil
		}),
		WithBackoffs(0, 0),
	}, opts...)

	app, err := Open(testConfig(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, provider
}

func writeDoc(t *testing.T, paragraphs int) string {
	t.Helper()
	var sb strings.Builder
	for i := range paragraphs {
		sb.WriteString(strings.Repeat("Paragraph about topic ", 20))
		sb.WriteString(string(rune('A' + i%26)))
		sb.WriteString(".\n\n")
	}
	path := filepath.Join(t.TempDir(), "guide.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func TestOpen_RequiresConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
}

func TestOpen_BadSessionPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not_a_dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	cfg := testConfig()
	cfg.SessionDBPath = file
	_, err := Open(cfg, WithVectorConstructor(func(ctx context.Context) (vectordb.Client, error) {
		return chromem.NewMemory(), nil
	}))
	assert.Error(t, err)
}

func TestApp_IngestAndCount(t *testing.T) {
	ctx := context.Background()
	uploader := &fakeUploader{}
	app, provider := openTestApp(t, WithUploader(uploader))

	path := writeDoc(t, 30)
	result, err := app.IngestFile(ctx, path, false)
	require.NoError(t, err)

	assert.Equal(t, "docs", result.Collection)
	assert.Positive(t, result.Chunks)
	assert.Len(t, result.IDs, result.Chunks)
	assert.Equal(t, uint64(result.Chunks), result.Count)
	assert.Equal(t, "s3://bucket/uploads/guide.txt", result.ObjectURI)
	assert.Equal(t, []string{path}, uploader.paths)
	assert.Positive(t, provider.GetMockEmbedder().CallCount())

	count, err := app.CountVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(result.Chunks), count)

	names, err := app.Collections().ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)

	// Overwriting leaves only the new document's points
	result, err = app.IngestFile(ctx, writeDoc(t, 3), true)
	require.NoError(t, err)
	count, err = app.CountVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(result.Chunks), count)
}

func TestApp_Chat(t *testing.T) {
	ctx := context.Background()
	app, provider := openTestApp(t, WithInMemorySessions())

	_, err := app.IngestFile(ctx, writeDoc(t, 5), false)
	require.NoError(t, err)

	svc, err := app.NewChat(ctx, "session-1")
	require.NoError(t, err)

	answer := svc.Ask(ctx, "Tell me about topic B")
	assert.True(t, strings.HasPrefix(answer, "mock reply"))
	assert.Contains(t, provider.GetMockChatModel().LastUserPrompt(), "<context>\n[1] ")

	stored, err := app.Sessions().GetSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.State.TurnCount)

	resumed, err := app.NewChat(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resumed.Memory().TurnCount())
}

func TestApp_ChatWithoutSessionStore(t *testing.T) {
	ctx := context.Background()
	app, _ := openTestApp(t)
	assert.Nil(t, app.Sessions())

	svc, err := app.NewChat(ctx, "ignored")
	require.NoError(t, err)
	assert.Zero(t, svc.Memory().TurnCount())
}

func TestApp_NewRetriever(t *testing.T) {
	app, _ := openTestApp(t)

	r, err := app.NewRetriever("")
	require.NoError(t, err)
	assert.Equal(t, "docs", r.Collection())

	r, err = app.NewRetriever("other")
	require.NoError(t, err)
	assert.Equal(t, "other", r.Collection())
}

func TestApp_Close(t *testing.T) {
	app, provider := openTestApp(t, WithInMemorySessions())

	// Force the provider to be built so Close has something to release
	_, err := app.NewChat(context.Background(), "")
	require.NoError(t, err)
	_, err = app.providers.Get(context.Background())
	require.NoError(t, err)

	require.NoError(t, app.Close())
	assert.Equal(t, 1, provider.CloseCount())
	assert.True(t, app.backend.IsClosed())
}
