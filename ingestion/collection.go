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
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
)

// DefaultListingTTL is how long a collection-name listing is reused by
// ListCollections. EnsureCollection always asks the database.
const DefaultListingTTL = 10 * time.Minute

const listingKey = "collections"

// CollectionManager creates, recreates and deletes collections.
// It is safe for concurrent use.
type CollectionManager struct {
	clients    vectordb.ClientSource
	listing    *ristretto.Cache[string, []string]
	listingTTL time.Duration
	locks      sync.Map // collection name -> *sync.Mutex
	logger     *slog.Logger
}

// CollectionOption configures a CollectionManager.
type CollectionOption func(*CollectionManager) error

// WithListingTTL sets how long ListCollections reuses a listing.
// Zero disables the cache. Default is 10 minutes.
func WithListingTTL(ttl time.Duration) CollectionOption {
	return func(m *CollectionManager) error {
		if ttl < 0 {
			return fmt.Errorf("%w: listing ttl must not be negative", core.ErrInvalidArgument)
		}
		m.listingTTL = ttl
		return nil
	}
}

// WithCollectionLogger sets a custom logger.
func WithCollectionLogger(logger *slog.Logger) CollectionOption {
	return func(m *CollectionManager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewCollectionManager creates a manager that talks to the database through clients.
func NewCollectionManager(clients vectordb.ClientSource, opts ...CollectionOption) (*CollectionManager, error) {
	if clients == nil {
		return nil, ErrClientSourceRequired
	}

	m := &CollectionManager{
		clients:    clients,
		listingTTL: DefaultListingTTL,
		logger:     slog.Default().With("component", "collection-manager"),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.listingTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[string, []string]{
			NumCounters: 100,
			MaxCost:     1 << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create listing cache: %w", err)
		}
		m.listing = cache
	}
	return m, nil
}

// EnsureCollection makes sure the named collection exists.
//
// An existing collection is left untouched unless overwrite is set, in which
// case it is deleted and recreated empty with the given vector parameters.
// The parameters of an existing collection are not compared with dim and
// distance.
func (m *CollectionManager) EnsureCollection(ctx context.Context, name string, overwrite bool, dim uint64, distance core.Distance) error {
	name, err := core.ValidateCollectionName(name)
	if err != nil {
		return err
	}
	if dim == 0 {
		return fmt.Errorf("%w: vector dimension must be positive", core.ErrInvalidArgument)
	}

	unlock := m.lock(name)
	defer unlock()

	client, err := m.clients.Get(ctx)
	if err != nil {
		return err
	}

	exists, err := m.exists(ctx, client, name)
	if err != nil {
		return err
	}

	switch {
	case exists && !overwrite:
		m.logger.Debug("collection exists, keeping it", "collection", name)
		return nil
	case exists && overwrite:
		m.logger.Info("overwriting collection", "collection", name)
		if err := client.DeleteCollection(ctx, name); err != nil {
			m.invalidate()
			return fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
		m.invalidate()
	}

	err = client.CreateCollection(ctx, vectordb.CollectionParams{
		Name:      name,
		Dimension: dim,
		Distance:  distance,
	})
	m.invalidate()
	if err != nil {
		if errors.Is(err, core.ErrCollectionExists) {
			m.logger.Debug("collection created concurrently", "collection", name)
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	m.logger.Info("created collection", "collection", name, "dimension", dim, "distance", distance)
	return nil
}

// CountVectors returns the exact number of points in the named collection.
func (m *CollectionManager) CountVectors(ctx context.Context, name string) (uint64, error) {
	name, err := core.ValidateCollectionName(name)
	if err != nil {
		return 0, err
	}

	client, err := m.clients.Get(ctx)
	if err != nil {
		return 0, err
	}

	n, err := client.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", name, err)
	}
	return n, nil
}

// ListCollections returns the collection names, sorted. The listing may be
// served from the cache.
func (m *CollectionManager) ListCollections(ctx context.Context) ([]string, error) {
	client, err := m.clients.Get(ctx)
	if err != nil {
		return nil, err
	}
	names, err := m.list(ctx, client)
	if err != nil {
		return nil, err
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return names, nil
}

// DeleteCollection removes the named collection and all of its points.
func (m *CollectionManager) DeleteCollection(ctx context.Context, name string) error {
	name, err := core.ValidateCollectionName(name)
	if err != nil {
		return err
	}

	unlock := m.lock(name)
	defer unlock()

	client, err := m.clients.Get(ctx)
	if err != nil {
		return err
	}

	err = client.DeleteCollection(ctx, name)
	m.invalidate()
	if err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	m.logger.Info("deleted collection", "collection", name)
	return nil
}

// Close releases the listing cache.
func (m *CollectionManager) Close() {
	if m.listing != nil {
		m.listing.Close()
	}
}

// exists lists the collections on the database, bypassing the cache, and
// falls back to a direct existence check when listing fails.
func (m *CollectionManager) exists(ctx context.Context, client vectordb.Client, name string) (bool, error) {
	names, err := m.fetch(ctx, client)
	if err == nil {
		return slices.Contains(names, name), nil
	}

	m.logger.Warn("listing collections failed, checking existence directly", "collection", name, "err", err)
	ok, err := client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return ok, nil
}

func (m *CollectionManager) list(ctx context.Context, client vectordb.Client) ([]string, error) {
	if m.listing != nil {
		if names, ok := m.listing.Get(listingKey); ok {
			return names, nil
		}
	}
	return m.fetch(ctx, client)
}

// fetch lists the collections on the database and refreshes the cache.
func (m *CollectionManager) fetch(ctx context.Context, client vectordb.Client) ([]string, error) {
	names, err := client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	if m.listing != nil {
		m.listing.SetWithTTL(listingKey, names, 1, m.listingTTL)
		m.listing.Wait()
	}
	return names, nil
}

func (m *CollectionManager) invalidate() {
	if m.listing != nil {
		m.listing.Del(listingKey)
	}
}

func (m *CollectionManager) lock(name string) func() {
	v, _ := m.locks.LoadOrStore(name, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
