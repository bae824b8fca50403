package bedrock

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/poiesic/docchat/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderWithClient(t *testing.T) {
	client := bedrockruntime.NewFromConfig(aws.Config{Region: "ap-south-1"})

	t.Run("valid config", func(t *testing.T) {
		provider, err := NewProviderWithClient(ai.DefaultConfig(), client)
		require.NoError(t, err)
		defer provider.Close()

		assert.NotNil(t, provider.Embedder())
		assert.NotNil(t, provider.ChatModel())
	})

	t.Run("nil client", func(t *testing.T) {
		provider, err := NewProviderWithClient(ai.DefaultConfig(), nil)
		assert.Error(t, err)
		assert.Nil(t, provider)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := ai.DefaultConfig()
		cfg.EmbeddingModel = ""

		provider, err := NewProviderWithClient(cfg, client)
		assert.Error(t, err)
		assert.Nil(t, provider)
	})
}
