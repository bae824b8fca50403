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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
)

// Vector database backends.
const (
	BackendQdrant  = "qdrant"
	BackendChromem = "chromem"
)

// ErrMissingSetting indicates a required variable is unset.
var ErrMissingSetting = errors.New("missing required setting")

// Config holds every setting docchat reads from the environment.
type Config struct {
	AWSRegion string `envconfig:"AWS_REGION" default:"ap-south-1"`

	EmbeddingProvider string  `envconfig:"EMBEDDING_PROVIDER" default:"bedrock"`
	ChatProvider      string  `envconfig:"CHAT_PROVIDER"`
	EmbeddingModelID  string  `envconfig:"EMBEDDING_MODEL_ID" default:"amazon.titan-embed-text-v2:0"`
	LLMModelID        string  `envconfig:"LLM_MODEL_ID" default:"anthropic.claude-3-haiku-20240307-v1:0"`
	LLMMaxTokens      int     `envconfig:"LLM_MAX_TOKENS" default:"1024"`
	LLMTemperature    float64 `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	OpenAIBaseURL     string  `envconfig:"OPENAI_BASE_URL"`
	OpenAIAPIKey      string  `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey   string  `envconfig:"ANTHROPIC_API_KEY"`

	VectorBackend       string        `envconfig:"VECTOR_BACKEND" default:"qdrant"`
	QdrantURL           string        `envconfig:"QDRANT_URL"`
	QdrantAPIKey        string        `envconfig:"QDRANT_API_KEY"`
	QdrantCollection    string        `envconfig:"QDRANT_COLLECTION" default:"documents"`
	QdrantClientTimeout time.Duration `envconfig:"QDRANT_CLIENT_TIMEOUT" default:"60s"`
	QdrantUploadTimeout time.Duration `envconfig:"QDRANT_UPLOAD_TIMEOUT" default:"120s"`
	ChromemPath         string        `envconfig:"CHROMEM_PATH"`
	VectorDim           uint64        `envconfig:"VECTOR_DIM" default:"1024"`
	VectorDistance      string        `envconfig:"VECTOR_DISTANCE" default:"cosine"`

	S3Bucket      string `envconfig:"S3_BUCKET"`
	SessionDBPath string `envconfig:"SESSION_DB_PATH"`
}

// Load reads .env from the working directory if present, then the
// environment, and validates the result.
func Load() (*Config, error) {
	return LoadFrom()
}

// LoadFrom is Load with explicit .env files. Missing files are ignored.
func LoadFrom(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes the configuration and checks it is complete.
func (c *Config) Validate() error {
	c.VectorBackend = strings.ToLower(strings.TrimSpace(c.VectorBackend))
	switch c.VectorBackend {
	case BackendQdrant:
		if c.QdrantURL == "" {
			return fmt.Errorf("%w: QDRANT_URL", ErrMissingSetting)
		}
		if c.QdrantAPIKey == "" {
			return fmt.Errorf("%w: QDRANT_API_KEY", ErrMissingSetting)
		}
	case BackendChromem:
	default:
		return fmt.Errorf("%w: unknown VECTOR_BACKEND %q", core.ErrInvalidArgument, c.VectorBackend)
	}

	collection, err := core.ValidateCollectionName(c.QdrantCollection)
	if err != nil {
		return fmt.Errorf("QDRANT_COLLECTION: %w", err)
	}
	c.QdrantCollection = collection

	if c.VectorDim == 0 {
		return fmt.Errorf("%w: VECTOR_DIM must be positive", core.ErrInvalidArgument)
	}
	distance, err := core.ParseDistance(c.VectorDistance)
	if err != nil {
		return fmt.Errorf("VECTOR_DISTANCE: %w", err)
	}
	c.VectorDistance = string(distance)

	if c.QdrantClientTimeout <= 0 || c.QdrantUploadTimeout <= 0 {
		return fmt.Errorf("%w: qdrant timeouts must be positive", core.ErrInvalidArgument)
	}

	if err := c.EmbeddingAIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if err := c.ChatAIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	return nil
}

// Distance returns the configured vector distance.
func (c *Config) Distance() core.Distance {
	d, _ := core.ParseDistance(c.VectorDistance)
	return d
}

// EmbeddingAIConfig returns the AI configuration for the embedding provider.
// Chat settings are carried along but chat always uses that same provider.
func (c *Config) EmbeddingAIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(c.EmbeddingProvider),
		ai.WithRegion(c.AWSRegion),
		ai.WithHost(c.OpenAIBaseURL),
		ai.WithAPIKey(c.OpenAIAPIKey),
		ai.WithEmbeddingModel(c.EmbeddingModelID),
		ai.WithChatModel(c.LLMModelID),
		ai.WithMaxTokens(c.LLMMaxTokens),
		ai.WithTemperature(c.LLMTemperature),
	)
}

// ChatAIConfig returns the AI configuration for the chat provider, with the
// API key that provider needs.
func (c *Config) ChatAIConfig() *ai.Config {
	cfg := c.EmbeddingAIConfig()
	cfg.ChatProvider = c.ChatProvider
	if strings.EqualFold(strings.TrimSpace(c.ChatProvider), ai.ProviderAnthropic) {
		cfg.APIKey = c.AnthropicAPIKey
	}
	return cfg
}

// SeparateChat reports whether chat runs on a different provider than
// embeddings.
func (c *Config) SeparateChat() bool {
	cfg := c.ChatAIConfig()
	cfg.Normalize()
	return cfg.EffectiveChatProvider() != cfg.Provider
}
