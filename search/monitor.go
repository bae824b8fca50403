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

package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
)

// SearchMonitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterVectorSearch(hits []vectordb.ScoredPoint)
	Boosted(chunk core.ScoredChunk, coverage float32)
	BelowThreshold(chunk core.ScoredChunk)
	Finish(results []core.ScoredChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                             {}
func (n *noopMonitor) AfterEmbedding(_ []float32)                 {}
func (n *noopMonitor) AfterVectorSearch(_ []vectordb.ScoredPoint) {}
func (n *noopMonitor) Boosted(_ core.ScoredChunk, _ float32)      {}
func (n *noopMonitor) BelowThreshold(_ core.ScoredChunk)          {}
func (n *noopMonitor) Finish(_ []core.ScoredChunk)                {}

// LogMonitor reports each retrieval stage to a logger at debug level.
type LogMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a LogMonitor. A nil logger means slog.Default().
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search-monitor")}
}

func (m *LogMonitor) Start(query string) {
	m.debug("search started", "query", query)
}

func (m *LogMonitor) AfterEmbedding(vector []float32) {
	m.debug("query embedded", "dimension", len(vector))
}

func (m *LogMonitor) AfterVectorSearch(hits []vectordb.ScoredPoint) {
	m.debug("vector search done", "hits", len(hits))
}

func (m *LogMonitor) Boosted(chunk core.ScoredChunk, coverage float32) {
	m.debug("keyword boost", "source", chunk.Source, "coverage", coverage, "score", chunk.Score)
}

func (m *LogMonitor) BelowThreshold(chunk core.ScoredChunk) {
	m.debug("dropped below min score", "source", chunk.Source, "score", chunk.Score)
}

func (m *LogMonitor) Finish(results []core.ScoredChunk) {
	m.debug("search finished", "results", len(results))
}

func (m *LogMonitor) debug(msg string, args ...any) {
	m.logger.Log(context.Background(), slog.LevelDebug, msg, args...)
}
