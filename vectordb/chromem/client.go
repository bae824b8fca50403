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

package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
)

const (
	metaDimension = "dimension"
	metaDistance  = "distance"
	metaSource    = "source"
)

// Client implements vectordb.Client on an embedded chromem-go database.
// Vectors are always supplied by the caller; chromem's own embedding
// function is never invoked.
type Client struct {
	db          *chromem.DB
	concurrency int
	// chromem keeps collection metadata private, so the vector shape of each
	// collection is tracked here.
	mu     sync.RWMutex
	params map[string]vectordb.CollectionParams
	logger *slog.Logger
}

var _ vectordb.Client = (*Client)(nil)

// NewMemory creates a client backed by a fresh in-memory database.
func NewMemory() *Client {
	return newClient(chromem.NewDB())
}

// NewPersistent creates a client backed by a database persisted under path.
func NewPersistent(path string, compress bool) (*Client, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("chromem: open %s: %w", path, err)
	}
	return newClient(db), nil
}

func newClient(db *chromem.DB) *Client {
	return &Client{
		db:          db,
		concurrency: runtime.NumCPU(),
		params:      make(map[string]vectordb.CollectionParams),
		logger:      slog.Default().With("component", "chromem-client"),
	}
}

// noEmbedding guards against chromem falling back to its default remote embedder.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("%w: chromem client requires precomputed vectors", core.ErrInvalidArgument)
}

// ListCollections returns collection names in sorted order.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	cols := c.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// CollectionExists reports whether the collection exists.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	return c.db.GetCollection(name, noEmbedding) != nil, nil
}

// CreateCollection creates a collection. Creating an existing name is a no-op,
// matching chromem's own semantics.
func (c *Client) CreateCollection(ctx context.Context, params vectordb.CollectionParams) error {
	metadata := map[string]string{
		metaDimension: strconv.FormatUint(params.Dimension, 10),
		metaDistance:  string(params.Distance),
	}
	if _, err := c.db.GetOrCreateCollection(params.Name, metadata, noEmbedding); err != nil {
		return fmt.Errorf("chromem: create collection %s: %w", params.Name, err)
	}

	c.mu.Lock()
	if _, ok := c.params[params.Name]; !ok {
		c.params[params.Name] = params
	}
	c.mu.Unlock()
	return nil
}

// DeleteCollection removes the collection and its points.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	if err := c.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("chromem: delete collection %s: %w", name, err)
	}
	c.mu.Lock()
	delete(c.params, name)
	c.mu.Unlock()
	return nil
}

// Upsert writes points. Writes are always synchronous, so wait is ignored.
// Vectors whose length differs from the collection's dimension are rejected
// with core.ErrDimensionMismatch before anything is written.
func (c *Client) Upsert(ctx context.Context, collection string, points []core.Point, wait bool) error {
	col := c.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return fmt.Errorf("%w: %s", core.ErrCollectionNotFound, collection)
	}

	dim := c.dimension(collection)
	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if dim > 0 && uint64(len(p.Vector)) != dim {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %s expects %d",
				core.ErrDimensionMismatch, p.ID, len(p.Vector), collection, dim)
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Metadata:  map[string]string{metaSource: p.Payload.Source},
			Embedding: p.Vector,
			Content:   p.Payload.Text,
		}
	}

	if err := col.AddDocuments(ctx, docs, c.concurrency); err != nil {
		return fmt.Errorf("chromem: upsert into %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of points in the collection.
func (c *Client) Count(ctx context.Context, collection string) (uint64, error) {
	col := c.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return 0, fmt.Errorf("%w: %s", core.ErrCollectionNotFound, collection)
	}
	return uint64(col.Count()), nil
}

// Search returns the closest points by cosine similarity.
// chromem only supports cosine, regardless of the configured distance.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectordb.ScoredPoint, error) {
	col := c.db.GetCollection(collection, noEmbedding)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", core.ErrCollectionNotFound, collection)
	}

	// chromem rejects nResults larger than the collection
	if n := col.Count(); limit > n {
		limit = n
	}
	if limit <= 0 {
		return []vectordb.ScoredPoint{}, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem: query %s: %w", collection, err)
	}

	hits := make([]vectordb.ScoredPoint, len(results))
	for i, r := range results {
		hits[i] = vectordb.ScoredPoint{
			ID:    r.ID,
			Score: r.Similarity,
			Payload: core.Payload{
				Source: r.Metadata[metaSource],
				Text:   r.Content,
			},
		}
	}
	return hits, nil
}

// Close is a no-op; persistent databases write through on every change.
func (c *Client) Close() error {
	c.logger.Debug("closing chromem client")
	return nil
}

// dimension returns the tracked dimension of a collection, or 0 when unknown
// (for example a collection loaded from disk by a previous process).
func (c *Client) dimension(collection string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params[collection].Dimension
}
