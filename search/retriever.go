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
	"fmt"
	"log/slog"
	"sort"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
)

// DefaultK is the number of chunks returned when Retrieve is given k <= 0.
const DefaultK = 7

// candidateFactor widens the vector search when hits are reranked.
const candidateFactor = 3

// Retriever finds the chunks of one collection closest to a query.
// It is safe for concurrent use.
type Retriever struct {
	clients      vectordb.ClientSource
	embedders    ai.EmbedderSource
	collection   string
	minScore     float32
	keywordBoost float32
	logger       *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMinScore drops hits whose final score is below score.
// Default is 0, which keeps every hit.
func WithMinScore(score float32) Option {
	return func(r *Retriever) error {
		r.minScore = score
		return nil
	}
}

// WithKeywordBoost adds boost times the share of query keywords found in a
// chunk to its similarity score, then reranks. Default is 0 (no rerank).
func WithKeywordBoost(boost float32) Option {
	return func(r *Retriever) error {
		if boost < 0 {
			return fmt.Errorf("%w: keyword boost must not be negative", core.ErrInvalidArgument)
		}
		r.keywordBoost = boost
		return nil
	}
}

// NewRetriever creates a retriever over collection. Neither source is
// contacted until the first Retrieve.
func NewRetriever(clients vectordb.ClientSource, embedders ai.EmbedderSource, collection string, opts ...Option) (*Retriever, error) {
	if clients == nil {
		return nil, ErrClientSourceRequired
	}
	if embedders == nil {
		return nil, ErrEmbedderRequired
	}
	collection, err := core.ValidateCollectionName(collection)
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		clients:    clients,
		embedders:  embedders,
		collection: collection,
		logger:     slog.Default().With("component", "retriever", "collection", collection),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Collection returns the name of the collection searched.
func (r *Retriever) Collection() string {
	return r.collection
}

// Retrieve returns up to k chunks most similar to query, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]core.ScoredChunk, error) {
	return r.RetrieveWithMonitor(ctx, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) ([]core.ScoredChunk, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if core.IsBlank(query) {
		return nil, fmt.Errorf("%w: query must not be blank", core.ErrInvalidArgument)
	}
	if k <= 0 {
		k = DefaultK
	}

	monitor.Start(query)

	embedder, err := r.embedders.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	vector, err := embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(vector)

	client, err := r.clients.Get(ctx)
	if err != nil {
		return nil, err
	}

	limit := k
	if r.keywordBoost > 0 {
		limit = k * candidateFactor
	}
	hits, err := client.Search(ctx, r.collection, vector, limit)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(hits)

	results := make([]core.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk := toScoredChunk(hit)

		if r.keywordBoost > 0 {
			if coverage := keywordCoverage(chunk.Text, query); coverage > 0 {
				chunk.Score += r.keywordBoost * coverage
				monitor.Boosted(chunk, coverage)
			}
		}

		if chunk.Score < r.minScore {
			monitor.BelowThreshold(chunk)
			continue
		}
		results = append(results, chunk)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	monitor.Finish(results)

	r.logger.Debug("retrieved chunks", "hits", len(hits), "returned", len(results))
	return results, nil
}

func toScoredChunk(hit vectordb.ScoredPoint) core.ScoredChunk {
	index, ok := core.ParseSourceLabel(hit.Payload.Source)
	if !ok {
		index = -1
	}
	return core.ScoredChunk{
		Chunk:  core.Chunk{Text: hit.Payload.Text, SourceIndex: index},
		ID:     hit.ID,
		Source: hit.Payload.Source,
		Score:  hit.Score,
	}
}
