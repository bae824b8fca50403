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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/retry"
	"github.com/poiesic/docchat/vectordb"
)

const (
	DefaultUploadRetries = 3
	DefaultUploadBackoff = 2 * time.Second
)

// Upserter pairs chunks with their embeddings and writes them as points.
type Upserter struct {
	manager    *CollectionManager
	clients    vectordb.ClientSource
	dimension  uint64
	distance   core.Distance
	retries    int
	backoff    time.Duration
	contentIDs bool
	logger     *slog.Logger
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter) error

// WithVectorParams sets the parameters used when the target collection has
// to be created. A zero dimension is taken from the first stored vector.
// Default is 1024 and cosine.
func WithVectorParams(dimension uint64, distance core.Distance) UpserterOption {
	return func(u *Upserter) error {
		if distance == "" {
			distance = core.DistanceCosine
		}
		if _, err := core.ParseDistance(string(distance)); err != nil {
			return err
		}
		u.dimension = dimension
		u.distance = distance
		return nil
	}
}

// WithUploadRetries sets the number of upsert attempts.
// Default is 3.
func WithUploadRetries(n int) UpserterOption {
	return func(u *Upserter) error {
		if n < 1 {
			return fmt.Errorf("%w: upload retries must be at least 1", core.ErrInvalidArgument)
		}
		u.retries = n
		return nil
	}
}

// WithUploadBackoff sets the fixed wait between upsert attempts.
// Default is 2s.
func WithUploadBackoff(d time.Duration) UpserterOption {
	return func(u *Upserter) error {
		if d < 0 {
			return fmt.Errorf("%w: upload backoff must not be negative", core.ErrInvalidArgument)
		}
		u.backoff = d
		return nil
	}
}

// WithContentIDs derives point IDs from the collection, source label and
// text instead of generating random ones. Re-ingesting the same document
// then replaces its points rather than duplicating them.
func WithContentIDs() UpserterOption {
	return func(u *Upserter) error {
		u.contentIDs = true
		return nil
	}
}

// WithUpserterLogger sets a custom logger.
func WithUpserterLogger(logger *slog.Logger) UpserterOption {
	return func(u *Upserter) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// NewUpserter creates an Upserter that ensures collections through manager
// and writes through clients.
func NewUpserter(manager *CollectionManager, clients vectordb.ClientSource, opts ...UpserterOption) (*Upserter, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w: collection manager required", core.ErrInvalidArgument)
	}
	if clients == nil {
		return nil, ErrClientSourceRequired
	}

	u := &Upserter{
		manager:   manager,
		clients:   clients,
		dimension: core.DefaultVectorDim,
		distance:  core.DistanceCosine,
		retries:   DefaultUploadRetries,
		backoff:   DefaultUploadBackoff,
		logger:    slog.Default().With("component", "upserter"),
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Store writes every usable chunk/embedding pair to collection and returns
// the IDs of the written points.
//
// Pairs are matched by index. A chunk is dropped when its text is blank,
// when it has no embedding, or when nothing is left after removing surrogate
// code points. When no pair survives the database is not contacted and an
// empty slice is returned.
func (u *Upserter) Store(ctx context.Context, collection string, chunks []core.Chunk, embeddings [][]float32, overwrite bool) ([]string, error) {
	if chunks == nil || embeddings == nil {
		return nil, fmt.Errorf("%w: chunks and embeddings must not be nil", core.ErrInvalidArgument)
	}
	collection, err := core.ValidateCollectionName(collection)
	if err != nil {
		return nil, err
	}

	points := u.pair(collection, chunks, embeddings)
	dropped := len(chunks) - len(points)
	if dropped > 0 {
		u.logger.Info("dropped unusable chunks", "collection", collection, "dropped", dropped, "kept", len(points))
	}
	if len(points) == 0 {
		u.logger.Warn("no valid chunks to store", "collection", collection, "chunks", len(chunks))
		return []string{}, nil
	}

	dim := u.dimension
	if dim == 0 {
		dim = uint64(len(points[0].Vector))
	}
	if err := u.manager.EnsureCollection(ctx, collection, overwrite, dim, u.distance); err != nil {
		return nil, err
	}

	client, err := u.clients.Get(ctx)
	if err != nil {
		return nil, err
	}

	policy := retry.Fixed(u.retries, u.backoff).If(core.IsTransient)
	attempt := 0
	err = retry.Do(ctx, policy, func() error {
		attempt++
		err := client.Upsert(ctx, collection, points, true)
		if err != nil {
			u.logger.Warn("upsert failed", "collection", collection, "attempt", attempt, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %d points into %s: %w", len(points), collection, err)
	}

	ids := make([]string, len(points))
	for i, p := range points {
		ids[i] = p.ID
	}
	u.logger.Info("stored points", "collection", collection, "points", len(ids))
	return ids, nil
}

// pair builds the points for Store. IDs are assigned here, once, so every
// upsert attempt writes the same IDs.
func (u *Upserter) pair(collection string, chunks []core.Chunk, embeddings [][]float32) []core.Point {
	points := make([]core.Point, 0, len(chunks))
	for i, chunk := range chunks {
		if core.IsBlank(chunk.Text) {
			continue
		}
		if i >= len(embeddings) || len(embeddings[i]) == 0 {
			continue
		}

		text, removed := core.SanitizeText(chunk.Text)
		if removed > 0 {
			u.logger.Warn("removed invalid code points from chunk", "chunk", i, "removed", removed)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		source := core.SourceLabel(i)
		id := core.NewPointID()
		if u.contentIDs {
			id = core.ContentID(collection, source, text)
		}
		points = append(points, core.Point{
			ID:      id,
			Vector:  embeddings[i],
			Payload: core.Payload{Source: source, Text: text},
		})
	}
	return points
}
