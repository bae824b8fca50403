package ai_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCache_ReturnsSameInstance(t *testing.T) {
	var calls atomic.Int32
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		calls.Add(1)
		return mock.NewMockProvider(), nil
	})

	first, err := cache.Get(context.Background())
	require.NoError(t, err)
	second, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProviderCache_ConcurrentFirstUse(t *testing.T) {
	var calls atomic.Int32
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		calls.Add(1)
		// Widen the race window
		time.Sleep(20 * time.Millisecond)
		return mock.NewMockProvider(), nil
	})

	const goroutines = 32
	results := make([]ai.AIProvider, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			p, err := cache.Get(context.Background())
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "constructor must run exactly once")
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}

func TestProviderCache_FailureNotCached(t *testing.T) {
	var calls atomic.Int32
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("credentials unavailable")
		}
		return mock.NewMockProvider(), nil
	})

	_, err := cache.Get(context.Background())
	require.Error(t, err)

	p, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProviderCache_Accessors(t *testing.T) {
	provider := mock.NewMockProvider()
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		return provider, nil
	})

	embedder, err := cache.Embedder(context.Background())
	require.NoError(t, err)
	assert.Same(t, provider.Embedder(), embedder)

	chat, err := cache.ChatModel(context.Background())
	require.NoError(t, err)
	assert.Same(t, provider.ChatModel(), chat)
}

func TestProviderCache_Close(t *testing.T) {
	var calls atomic.Int32
	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
		calls.Add(1)
		return mock.NewMockProvider(), nil
	})

	// Closing an empty cache is a no-op
	require.NoError(t, cache.Close())

	p, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.NoError(t, cache.Close())
	assert.Equal(t, 1, p.(*mock.MockProvider).CloseCount())

	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestProviderCache_NilFactory(t *testing.T) {
	cache := ai.NewProviderCache(nil)
	_, err := cache.Get(context.Background())
	assert.Error(t, err)
}

func TestWithChat(t *testing.T) {
	base := mock.NewMockProvider().(*mock.MockProvider)
	chat := mock.NewMockChatModel()

	composed := ai.WithChat(base, chat)

	assert.Same(t, base.GetMockEmbedder(), composed.Embedder())
	assert.Same(t, chat, composed.ChatModel())
	require.NoError(t, composed.Close())
	assert.Equal(t, 1, base.CloseCount())
}
