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

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/tmc/langchaingo/prompts"
)

// DefaultK is the number of chunks retrieved per question.
const DefaultK = 7

// Retriever finds the chunks most relevant to a query.
// *search.Retriever is the production implementation.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]core.ScoredChunk, error)
}

// Reply is a model answer plus the chunks it was given.
type Reply struct {
	Text    string
	Sources []core.ScoredChunk
	Elapsed time.Duration
}

// Service answers questions for one conversation session.
// It is not safe for concurrent use; it shares its memory controller's rules.
type Service struct {
	retriever    Retriever
	models       ai.ChatModelSource
	memory       *memory.Controller
	k            int
	systemPrompt string
	template     prompts.PromptTemplate
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithK sets how many chunks are retrieved per question.
// Default is 7.
func WithK(k int) Option {
	return func(s *Service) error {
		if k < 1 {
			return fmt.Errorf("%w: k must be at least 1", core.ErrInvalidArgument)
		}
		s.k = k
		return nil
	}
}

// WithSystemPrompt replaces the default system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *Service) error {
		if core.IsBlank(prompt) {
			return fmt.Errorf("%w: system prompt must not be blank", core.ErrInvalidArgument)
		}
		s.systemPrompt = prompt
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a Service.
func NewService(retriever Retriever, models ai.ChatModelSource, mem *memory.Controller, opts ...Option) (*Service, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if models == nil {
		return nil, ErrChatModelRequired
	}
	if mem == nil {
		return nil, ErrMemoryRequired
	}

	s := &Service{
		retriever:    retriever,
		models:       models,
		memory:       mem,
		k:            DefaultK,
		systemPrompt: DefaultSystemPrompt,
		template:     newUserTemplate(),
		logger:       slog.Default().With("component", "chat"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Memory returns the session's memory controller.
func (s *Service) Memory() *memory.Controller {
	return s.memory
}

// Ask answers question and never fails. Errors are logged and replaced by a
// fixed reply.
func (s *Service) Ask(ctx context.Context, question string) string {
	reply, err := s.Answer(ctx, question)
	switch {
	case err == nil:
		return reply.Text
	case errors.Is(err, ErrBlankQuestion):
		return ReplyBlankQuestion
	case errors.Is(err, ErrEmptyAnswer):
		s.logger.Warn("invalid model response received")
		return ReplyEmptyAnswer
	default:
		s.logger.Error("error generating chat response", "err", err)
		return ReplyTrouble
	}
}

// Answer retrieves context for question, asks the model and records the
// exchange. Failing to record or summarize is logged and does not fail the
// answer.
func (s *Service) Answer(ctx context.Context, question string) (*Reply, error) {
	if core.IsBlank(question) {
		return nil, ErrBlankQuestion
	}
	start := time.Now()
	s.logger.Info("processing question", "question", question)

	chunks, err := s.retriever.Retrieve(ctx, question, s.k)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	s.logger.Debug("retrieved context", "chunks", len(chunks))

	recent, err := s.memory.Recent(ctx)
	if err != nil {
		return nil, err
	}

	prompt, err := renderUserPrompt(s.template, question, chunks, recent)
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}
	s.logger.Debug("final prompt", "system", s.systemPrompt, "user", prompt)

	model, err := s.models.ChatModel(ctx)
	if err != nil {
		return nil, err
	}
	text, err := model.Generate(ctx, s.systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyAnswer
	}

	if err := s.memory.RecordTurn(ctx, question, text); err != nil {
		s.logger.Warn("failed to record turn", "err", err)
	}
	if err := s.memory.MaybeCutover(ctx, s.memory.TurnCount()); err != nil {
		s.logger.Warn("memory cutover failed", "turn", s.memory.TurnCount(), "err", err)
	}

	elapsed := time.Since(start)
	s.logger.Info("response generated", "chunks", len(chunks), "elapsed", elapsed)
	return &Reply{Text: text, Sources: chunks, Elapsed: elapsed}, nil
}
