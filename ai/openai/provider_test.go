package openai

import (
	"testing"

	"github.com/poiesic/docchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := ai.NewConfig(
			ai.WithProvider(ai.ProviderOpenAI),
			ai.WithHost("http://localhost:11434"),
			ai.WithEmbeddingModel("nomic-embed-text"),
			ai.WithChatModel("qwen2.5:3b"),
		)

		provider, err := NewProvider(cfg)
		require.NoError(t, err)
		defer provider.Close()

		assert.NotNil(t, provider.Embedder())
		assert.NotNil(t, provider.ChatModel())
		assert.Equal(t, "http://localhost:11434/v1", cfg.Host)
	})

	t.Run("missing host", func(t *testing.T) {
		cfg := ai.NewConfig(ai.WithProvider(ai.ProviderOpenAI))

		provider, err := NewProvider(cfg)
		assert.Error(t, err)
		assert.Nil(t, provider)
	})
}

func TestToken(t *testing.T) {
	assert.Equal(t, "none", token(&ai.Config{}))
	assert.Equal(t, "sk-live", token(&ai.Config{APIKey: "sk-live"}))
}
