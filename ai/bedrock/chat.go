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
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/poiesic/docchat/ai"
	"github.com/tmc/langchaingo/llms"
	bedrockllm "github.com/tmc/langchaingo/llms/bedrock"
)

// ChatModel implements ai.ChatModel with a Bedrock-hosted model.
type ChatModel struct {
	llm         *bedrockllm.LLM
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewChatModel creates a standalone Bedrock chat model, for pairing with an
// embedder from another provider.
func NewChatModel(ctx context.Context, config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return newChatModel(config, bedrockruntime.NewFromConfig(awsCfg))
}

func newChatModel(config *ai.Config, client *bedrockruntime.Client) (*ChatModel, error) {
	llm, err := bedrockllm.New(
		bedrockllm.WithClient(client),
		bedrockllm.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &ChatModel{
		llm:         llm,
		model:       config.ChatModel,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "bedrock-chat"),
	}, nil
}

// Generate sends the system and user prompt and returns the reply text.
func (m *ChatModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reply, err := ai.GenerateText(ctx, m.llm, systemPrompt, userPrompt,
		llms.WithMaxTokens(m.maxTokens),
		llms.WithTemperature(m.temperature),
	)
	if err != nil {
		m.logger.Error("completion failed", "model", m.model, "err", err)
		return "", err
	}
	return reply, nil
}
