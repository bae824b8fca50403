package ingestion_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/retry"
	"github.com/poiesic/docchat/vectordb"
	"github.com/poiesic/docchat/vectordb/chromem"
	"github.com/poiesic/docchat/vectordb/vectortest"
	"github.com/stretchr/testify/require"
)

const testDim = 16

type testEnv struct {
	db       *vectortest.Flaky
	manager  *ingestion.CollectionManager
	upserter *ingestion.Upserter
	embedder *mock.MockEmbedder
	cache    *ai.ProviderCache
}

func newTestEnv(t *testing.T, opts ...ingestion.UpserterOption) *testEnv {
	t.Helper()

	db := vectortest.NewFlaky(chromem.NewMemory())
	manager, err := ingestion.NewCollectionManager(vectordb.Static(db))
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	opts = append([]ingestion.UpserterOption{
		ingestion.WithVectorParams(testDim, core.DistanceCosine),
		ingestion.WithUploadBackoff(0),
	}, opts...)
	upserter, err := ingestion.NewUpserter(manager, vectordb.Static(db), opts...)
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder().WithDimension(testDim)
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockChatModel())
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		return provider, nil
	})
	t.Cleanup(func() { _ = cache.Close() })

	return &testEnv{
		db:       db,
		manager:  manager,
		upserter: upserter,
		embedder: embedder,
		cache:    cache,
	}
}

func (e *testEnv) orchestrator(t *testing.T, opts ...ingestion.OrchestratorOption) *ingestion.Orchestrator {
	t.Helper()
	opts = append([]ingestion.OrchestratorOption{
		ingestion.WithBatchPolicy(retry.Fixed(5, 0)),
	}, opts...)
	o, err := ingestion.NewOrchestrator(e.cache, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Release)
	return o
}

func makeChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{Text: fmt.Sprintf("chunk %d", i), SourceIndex: i}
	}
	return chunks
}

func vectorsFor(chunks []core.Chunk) [][]float32 {
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		vecs[i] = mock.GenerateVector(c.Text, testDim)
	}
	return vecs
}

// failBatchStartingAt makes every EmbedTexts call whose first text is
// "chunk <start>" fail.
func failBatchStartingAt(start int) func(ctx context.Context, texts []string) ([][]float32, error) {
	marker := fmt.Sprintf("chunk %d", start)
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		if len(texts) > 0 && texts[0] == marker {
			return nil, fmt.Errorf("%w: throttled", core.ErrTransientTransport)
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.GenerateVector(text, testDim)
		}
		return out, nil
	}
}

func ctxWithTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
