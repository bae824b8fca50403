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

package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/poiesic/docchat/ai"
)

// messageCreator is the slice of the SDK's MessageService used here.
type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// ChatModel implements ai.ChatModel on the Anthropic Messages API.
type ChatModel struct {
	messages    messageCreator
	model       string
	maxTokens   int64
	temperature float64
	logger      *slog.Logger
}

// NewChatModel creates a chat model using config.APIKey and config.ChatModel.
func NewChatModel(config *ai.Config) (ai.ChatModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.APIKey == "" {
		return nil, errors.New("anthropic: APIKey is required")
	}

	client := anthropic.NewClient(option.WithAPIKey(config.APIKey))
	return newChatModel(config, &client.Messages), nil
}

func newChatModel(config *ai.Config, messages messageCreator) *ChatModel {
	return &ChatModel{
		messages:    messages,
		model:       config.ChatModel,
		maxTokens:   int64(config.MaxTokens),
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "anthropic-chat"),
	}
}

// Generate sends the system and user prompt and returns the concatenated text blocks.
func (m *ChatModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.model),
		MaxTokens:   m.maxTokens,
		Temperature: anthropic.Float(m.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := m.messages.New(ctx, params)
	if err != nil {
		m.logger.Error("completion failed", "model", m.model, "err", err)
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ai.ErrEmptyCompletion
	}
	return strings.TrimSpace(sb.String()), nil
}
