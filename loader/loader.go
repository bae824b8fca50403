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

package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order when splitting text.
var DefaultSeparators = []string{"\n\n", "\n", ".", " "}

// Loader reads PDF and plain text documents and splits them into chunks.
// It is safe for concurrent use.
type Loader struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
	logger       *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithChunkSize sets the maximum chunk length in characters.
// Default is 1000.
func WithChunkSize(n int) Option {
	return func(l *Loader) error {
		if n < 1 {
			return fmt.Errorf("%w: chunk size must be positive", core.ErrInvalidArgument)
		}
		l.chunkSize = n
		return nil
	}
}

// WithChunkOverlap sets how many characters consecutive chunks share.
// Default is 200.
func WithChunkOverlap(n int) Option {
	return func(l *Loader) error {
		if n < 0 {
			return fmt.Errorf("%w: chunk overlap must not be negative", core.ErrInvalidArgument)
		}
		l.chunkOverlap = n
		return nil
	}
}

// WithSeparators replaces the split separators.
func WithSeparators(separators ...string) Option {
	return func(l *Loader) error {
		if len(separators) == 0 {
			return fmt.Errorf("%w: at least one separator is required", core.ErrInvalidArgument)
		}
		l.separators = separators
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// New creates a Loader.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
		logger:       slog.Default().With("component", "loader"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.chunkOverlap >= l.chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d",
			core.ErrInvalidArgument, l.chunkOverlap, l.chunkSize)
	}
	return l, nil
}

// ExtractChunks loads path with the default settings.
func ExtractChunks(ctx context.Context, path string) ([]core.Chunk, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, path)
}

// Load reads the document at path and splits it into chunks.
// Supported extensions are .pdf, .txt and .md. Any failure wraps core.ErrLoad.
func (l *Loader) Load(ctx context.Context, path string) ([]core.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrLoad, err)
	}
	defer f.Close()

	splitter := l.splitter()
	var docs []schema.Document

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrLoad, err)
		}
		docs, err = documentloaders.NewPDF(f, info.Size()).LoadAndSplit(ctx, splitter)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse pdf %s: %w", core.ErrLoad, path, err)
		}
	case ".txt", ".md":
		docs, err = documentloaders.NewText(f).LoadAndSplit(ctx, splitter)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", core.ErrLoad, path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", core.ErrLoad, ext)
	}

	chunks := make([]core.Chunk, 0, len(docs))
	for _, doc := range docs {
		if core.IsBlank(doc.PageContent) {
			continue
		}
		chunks = append(chunks, core.Chunk{Text: doc.PageContent, SourceIndex: len(chunks)})
	}

	l.logger.Info("extracted chunks", "path", path, "chunks", len(chunks))
	return chunks, nil
}

func (l *Loader) splitter() textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(l.chunkSize),
		textsplitter.WithChunkOverlap(l.chunkOverlap),
		textsplitter.WithSeparators(l.separators),
	)
}
