package ingestion_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/vectordb"
	"github.com/poiesic/docchat/vectordb/chromem"
	"github.com/poiesic/docchat/vectordb/vectortest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectionManager_RequiresClients(t *testing.T) {
	_, err := ingestion.NewCollectionManager(nil)
	assert.ErrorIs(t, err, ingestion.ErrClientSourceRequired)

	_, err = ingestion.NewCollectionManager(vectordb.Static(chromem.NewMemory()), ingestion.WithListingTTL(-1))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestEnsureCollection_CreatesMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	require.NoError(t, env.manager.EnsureCollection(ctx, "docs", false, testDim, core.DistanceCosine))

	exists, err := env.db.CollectionExists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 1, env.db.Calls().Create)
	assert.Equal(t, 0, env.db.Calls().Delete)
}

func TestEnsureCollection_TrimsName(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	require.NoError(t, env.manager.EnsureCollection(ctx, "  docs  ", false, testDim, core.DistanceCosine))

	names, err := env.manager.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)
}

func TestEnsureCollection_KeepsExisting(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	chunks := makeChunks(3)
	_, err := env.upserter.Store(ctx, "docs", chunks, vectorsFor(chunks), false)
	require.NoError(t, err)

	// Parameters of an existing collection are not compared.
	require.NoError(t, env.manager.EnsureCollection(ctx, "docs", false, 2*testDim, core.DistanceDot))

	count, err := env.manager.CountVectors(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, 1, env.db.Calls().Create)
	assert.Equal(t, 0, env.db.Calls().Delete)
}

func TestEnsureCollection_OverwriteEmptiesCollection(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	chunks := makeChunks(5)
	_, err := env.upserter.Store(ctx, "docs", chunks, vectorsFor(chunks), false)
	require.NoError(t, err)

	count, err := env.manager.CountVectors(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, uint64(5), count)

	require.NoError(t, env.manager.EnsureCollection(ctx, "docs", true, testDim, core.DistanceCosine))

	count, err = env.manager.CountVectors(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
	assert.Equal(t, 1, env.db.Calls().Delete)
	assert.Equal(t, 2, env.db.Calls().Create)
}

func TestEnsureCollection_OverwriteMissingJustCreates(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	require.NoError(t, env.manager.EnsureCollection(ctx, "fresh", true, testDim, core.DistanceCosine))
	assert.Equal(t, 0, env.db.Calls().Delete)
	assert.Equal(t, 1, env.db.Calls().Create)
}

func TestEnsureCollection_InvalidArguments(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		dim        uint64
	}{
		{name: "empty name", collection: "", dim: testDim},
		{name: "spaces", collection: "   ", dim: testDim},
		{name: "tabs and newlines", collection: "\t\n", dim: testDim},
		{name: "zero dimension", collection: "docs", dim: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			err := env.manager.EnsureCollection(ctxWithTimeout(t), tt.collection, false, tt.dim, core.DistanceCosine)
			assert.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.Equal(t, vectortest.Calls{}, env.db.Calls(), "database must not be contacted")
		})
	}
}

func TestEnsureCollection_ListFailureFallsBackToExists(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	env.db.FailLists(1, errors.New("listing unavailable"))
	require.NoError(t, env.manager.EnsureCollection(ctx, "docs", false, testDim, core.DistanceCosine))

	calls := env.db.Calls()
	assert.Equal(t, 1, calls.List)
	assert.Equal(t, 1, calls.Exists)
	assert.Equal(t, 1, calls.Create)
}

func TestEnsureCollection_RecreatesCollectionDeletedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)
	chunks := makeChunks(3)

	for range 2 {
		_, err := env.upserter.Store(ctx, "docs", chunks, vectorsFor(chunks), false)
		require.NoError(t, err)
	}
	names, err := env.manager.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs"}, names)

	// Dropped behind the manager's back, so its cached listing is stale
	require.NoError(t, env.db.DeleteCollection(ctx, "docs"))

	require.NoError(t, env.manager.EnsureCollection(ctx, "docs", false, testDim, core.DistanceCosine))
	exists, err := env.db.CollectionExists(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, exists)

	ids, err := env.upserter.Store(ctx, "docs", chunks, vectorsFor(chunks), false)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	count, err := env.manager.CountVectors(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestEnsureCollection_ConcurrentCallersCreateOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	const goroutines = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			assert.NoError(t, env.manager.EnsureCollection(ctx, "shared", false, testDim, core.DistanceCosine))
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, env.db.Calls().Create)
}

func TestCollectionManager_ListingIsCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	require.NoError(t, env.manager.EnsureCollection(ctx, "a", false, testDim, core.DistanceCosine))
	listsAfterCreate := env.db.Calls().List

	names, err := env.manager.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	names, err = env.manager.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
	assert.Equal(t, listsAfterCreate+1, env.db.Calls().List, "second listing should come from the cache")

	// Delete invalidates the cached listing.
	require.NoError(t, env.manager.DeleteCollection(ctx, "a"))
	names, err = env.manager.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.Equal(t, listsAfterCreate+2, env.db.Calls().List)
}

func TestCollectionManager_ZeroTTLDisablesCache(t *testing.T) {
	db := vectortest.NewFlaky(chromem.NewMemory())
	manager, err := ingestion.NewCollectionManager(vectordb.Static(db), ingestion.WithListingTTL(0))
	require.NoError(t, err)
	defer manager.Close()

	ctx := ctxWithTimeout(t)
	for range 3 {
		_, err := manager.ListCollections(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, db.Calls().List)
}

func TestCountVectors(t *testing.T) {
	env := newTestEnv(t)
	ctx := ctxWithTimeout(t)

	_, err := env.manager.CountVectors(ctx, "  ")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = env.manager.CountVectors(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrCollectionNotFound)

	chunks := makeChunks(7)
	_, err = env.upserter.Store(ctx, "docs", chunks, vectorsFor(chunks), false)
	require.NoError(t, err)

	count, err := env.manager.CountVectors(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)
}

func TestDeleteCollection_BlankName(t *testing.T) {
	env := newTestEnv(t)
	err := env.manager.DeleteCollection(ctxWithTimeout(t), "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
