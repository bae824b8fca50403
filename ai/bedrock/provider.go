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

package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/poiesic/docchat/ai"
)

// Provider implements ai.AIProvider on Amazon Bedrock.
// The embedder and chat model share one bedrockruntime client.
type Provider struct {
	config   *ai.Config
	client   *bedrockruntime.Client
	embedder *Embedder
	chat     *ChatModel
	logger   *slog.Logger
}

// NewProvider loads AWS credentials from the default chain for config.Region
// and creates a Bedrock-backed provider.
func NewProvider(ctx context.Context, config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	return NewProviderWithClient(config, bedrockruntime.NewFromConfig(awsCfg))
}

// NewProviderWithClient creates a provider around an existing runtime client.
func NewProviderWithClient(config *ai.Config, client *bedrockruntime.Client) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}

	embedder, err := newEmbedder(config, client)
	if err != nil {
		return nil, err
	}

	chat, err := newChatModel(config, client)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:   config,
		client:   client,
		embedder: embedder,
		chat:     chat,
		logger:   slog.Default().With("component", "bedrock-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ChatModel returns the completion service.
func (p *Provider) ChatModel() ai.ChatModel {
	return p.chat
}

// Close releases resources held by the provider.
// The AWS SDK client holds no resources that need explicit release.
func (p *Provider) Close() error {
	p.logger.Debug("closing Bedrock provider")
	return nil
}
