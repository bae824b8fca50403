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

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Supported provider kinds.
const (
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the backend for embeddings (and chat, unless ChatProvider is set).
	// One of "bedrock" or "openai".
	Provider string

	// ChatProvider optionally selects a different backend for chat completions.
	// One of "bedrock", "openai" or "anthropic". Empty means same as Provider.
	ChatProvider string

	// Region is the AWS region hosting the Bedrock endpoint.
	// Default: "ap-south-1"
	Region string

	// Host is the base URL for OpenAI-compatible services.
	// Example: "http://localhost:11434/v1" for a local server
	Host string

	// APIKey is the token for OpenAI-compatible or Anthropic services.
	// Bedrock uses the AWS credential chain instead.
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "amazon.titan-embed-text-v2:0", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier to use for chat completions.
	// Example: "anthropic.claude-3-haiku-20240307-v1:0", "gpt-4o-mini"
	ChatModel string

	// MaxTokens bounds the length of a single completion.
	// Default: 1024
	MaxTokens int

	// Temperature controls sampling randomness.
	// Default: 0.2
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the embedding (and default chat) provider.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithChatProvider sets a separate provider for chat completions.
func WithChatProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.ChatProvider = provider
	}
}

// WithRegion sets the AWS region.
func WithRegion(region string) ConfigOption {
	return func(c *Config) {
		c.Region = region
	}
}

// WithHost sets the OpenAI-compatible service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithAPIKey sets the API key for token-authenticated providers.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithMaxTokens sets the completion length limit.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// DefaultConfig returns a Config targeting Amazon Bedrock in ap-south-1.
func DefaultConfig() *Config {
	return &Config{
		Provider:       ProviderBedrock,
		Region:         "ap-south-1",
		EmbeddingModel: "amazon.titan-embed-text-v2:0",
		ChatModel:      "anthropic.claude-3-haiku-20240307-v1:0",
		MaxTokens:      1024,
		Temperature:    0.2,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOpenAI),
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// EffectiveChatProvider returns the provider used for chat completions.
func (c *Config) EffectiveChatProvider() string {
	if c.ChatProvider == "" {
		return c.Provider
	}
	return c.ChatProvider
}

// Normalize ensures the configuration is in a canonical form.
// Provider names are lowercased and OpenAI-compatible hosts get the /v1 suffix.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.ChatProvider = strings.ToLower(strings.TrimSpace(c.ChatProvider))
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderBedrock, ProviderOpenAI:
	case "":
		return errors.New("ai config: Provider is required")
	default:
		return fmt.Errorf("ai config: unsupported embedding provider %q", c.Provider)
	}

	switch c.EffectiveChatProvider() {
	case ProviderBedrock, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("ai config: unsupported chat provider %q", c.ChatProvider)
	}

	if c.usesProvider(ProviderBedrock) && c.Region == "" {
		return errors.New("ai config: Region is required for bedrock")
	}
	if c.usesProvider(ProviderOpenAI) && c.Host == "" {
		return errors.New("ai config: Host is required for openai")
	}
	if c.EffectiveChatProvider() == ProviderAnthropic && c.APIKey == "" {
		return errors.New("ai config: APIKey is required for anthropic")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.MaxTokens <= 0 {
		return errors.New("ai config: MaxTokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return errors.New("ai config: Temperature must be between 0 and 1")
	}
	return nil
}

func (c *Config) usesProvider(kind string) bool {
	return c.Provider == kind || c.EffectiveChatProvider() == kind
}
