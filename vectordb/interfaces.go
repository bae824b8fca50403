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

package vectordb

import (
	"context"

	"github.com/poiesic/docchat/core"
)

// CollectionParams fixes the vector shape of a collection at creation time.
type CollectionParams struct {
	Name      string
	Dimension uint64
	Distance  core.Distance
}

// ScoredPoint is a search hit.
type ScoredPoint struct {
	ID      string
	Score   float32
	Payload core.Payload
}

// Client is the subset of vector database operations the module relies on.
// Implementations must be safe for concurrent use once constructed.
type Client interface {
	// ListCollections returns the names of all collections.
	ListCollections(ctx context.Context) ([]string, error)

	// CollectionExists reports whether the named collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// CreateCollection creates a collection with the given vector parameters.
	CreateCollection(ctx context.Context, params CollectionParams) error

	// DeleteCollection removes a collection and all of its points.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert writes points in a single request. When wait is true the call
	// returns only after the write has been applied.
	Upsert(ctx context.Context, collection string, points []core.Point, wait bool) error

	// Count returns the exact number of points in a collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// Search returns up to limit points closest to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error)

	// Close releases the underlying connection.
	Close() error
}

// Constructor dials a new Client.
type Constructor func(ctx context.Context) (Client, error)

// ClientSource hands out a shared Client. *ClientProvider is the production
// implementation.
type ClientSource interface {
	Get(ctx context.Context) (Client, error)
}

// Static returns a ClientSource that always yields c.
func Static(c Client) ClientSource {
	return staticSource{c}
}

type staticSource struct {
	client Client
}

func (s staticSource) Get(context.Context) (Client, error) {
	return s.client, nil
}
