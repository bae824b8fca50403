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

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/retry"
	"github.com/tmc/langchaingo/prompts"
)

const summarySystemPrompt = "You condense conversations into short, factual summaries. " +
	"Keep names, numbers and open questions. Reply with the summary only."

const summaryTemplate = `Progressively summarize the conversation below, adding to the current summary.
{{if .summary}}
Current summary:
{{.summary}}
{{end}}
New lines of conversation:
{{.new_lines}}

New summary:`

// LLMSummarizer summarizes turns with a chat model.
type LLMSummarizer struct {
	models   ai.ChatModelSource
	template prompts.PromptTemplate
	usePrior bool
	policy   retry.Policy
	logger   *slog.Logger
}

// SummarizerOption configures an LLMSummarizer.
type SummarizerOption func(*LLMSummarizer) error

// WithPriorSummary folds the existing long-term summary into the prompt so
// the new summary extends it. Default is false: each summary covers only the
// turns given.
func WithPriorSummary(enabled bool) SummarizerOption {
	return func(s *LLMSummarizer) error {
		s.usePrior = enabled
		return nil
	}
}

// WithSummaryPolicy sets the retry policy around the model call.
// Default is 3 attempts with exponential backoff from 500ms, transient errors only.
func WithSummaryPolicy(policy retry.Policy) SummarizerOption {
	return func(s *LLMSummarizer) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		s.policy = policy
		return nil
	}
}

// WithSummarizerLogger sets a custom logger.
func WithSummarizerLogger(logger *slog.Logger) SummarizerOption {
	return func(s *LLMSummarizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewLLMSummarizer creates a summarizer that calls the model from models.
// The model is not resolved until the first Summarize.
func NewLLMSummarizer(models ai.ChatModelSource, opts ...SummarizerOption) (*LLMSummarizer, error) {
	if models == nil {
		return nil, ErrChatModelRequired
	}

	s := &LLMSummarizer{
		models:   models,
		template: prompts.NewPromptTemplate(summaryTemplate, []string{"summary", "new_lines"}),
		policy:   retry.Exponential(3, 500*time.Millisecond).If(core.IsTransient),
		logger:   slog.Default().With("component", "summarizer"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Summarize implements Summarizer.
func (s *LLMSummarizer) Summarize(ctx context.Context, turns []core.Turn, prior string) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("%w: no turns to summarize", core.ErrInvalidArgument)
	}

	prompt, err := s.Prompt(turns, prior)
	if err != nil {
		return "", err
	}

	model, err := s.models.ChatModel(ctx)
	if err != nil {
		return "", err
	}

	var summary string
	err = retry.Do(ctx, s.policy, func() error {
		out, err := model.Generate(ctx, summarySystemPrompt, prompt)
		if err != nil {
			s.logger.Warn("summary generation failed", "err", err)
			return err
		}
		summary = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	if summary == "" {
		return "", ErrEmptySummary
	}

	s.logger.Debug("generated summary", "turns", len(turns), "summary", truncate(summary, 100))
	return summary, nil
}

// Prompt renders the summary prompt for turns.
func (s *LLMSummarizer) Prompt(turns []core.Turn, prior string) (string, error) {
	transcript, err := Transcript(turns)
	if err != nil {
		return "", fmt.Errorf("failed to render transcript: %w", err)
	}
	if !s.usePrior {
		prior = ""
	}
	prompt, err := s.template.Format(map[string]any{
		"summary":   strings.TrimSpace(prior),
		"new_lines": transcript,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render summary prompt: %w", err)
	}
	return prompt, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
