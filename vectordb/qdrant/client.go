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

package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/vectordb"
	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	restPort = 6333
	grpcPort = 6334

	DefaultTimeout       = 60 * time.Second
	DefaultUploadTimeout = 120 * time.Second
)

// Config describes how to reach a Qdrant deployment.
type Config struct {
	// URL of the deployment, e.g. "https://xyz.cloud.qdrant.io:6333".
	// The REST port 6333 is mapped to the gRPC port 6334.
	URL string

	// APIKey authenticates against Qdrant Cloud or secured deployments.
	APIKey string

	// Timeout bounds every call except Upsert. Default 60s.
	Timeout time.Duration

	// UploadTimeout bounds Upsert calls. Default 120s.
	UploadTimeout time.Duration
}

// Client implements vectordb.Client on the official Qdrant gRPC client.
type Client struct {
	client        *qc.Client
	timeout       time.Duration
	uploadTimeout time.Duration
	logger        *slog.Logger
}

var _ vectordb.Client = (*Client)(nil)

// New dials Qdrant. The connection is established lazily by gRPC, so New
// only fails on malformed configuration; use a liveness probe to verify it.
func New(cfg Config) (*Client, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,

		// The provider's ListCollections probe covers reachability
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: create client: %w", classify(err))
	}

	c := &Client{
		client:        client,
		timeout:       cfg.Timeout,
		uploadTimeout: cfg.UploadTimeout,
		logger:        slog.Default().With("component", "qdrant-client", "host", host),
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.uploadTimeout <= 0 {
		c.uploadTimeout = DefaultUploadTimeout
	}
	return c, nil
}

// parseURL splits a Qdrant URL into gRPC host, port and TLS flag.
func parseURL(raw string) (string, int, bool, error) {
	if raw == "" {
		return "", 0, false, fmt.Errorf("%w: qdrant URL is required", core.ErrInvalidArgument)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("%w: malformed qdrant URL %q", core.ErrInvalidArgument, raw)
	}

	useTLS := u.Scheme == "https"
	host := u.Hostname()
	port := grpcPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, false, fmt.Errorf("%w: malformed qdrant port %q", core.ErrInvalidArgument, p)
		}
		if n != restPort {
			port = n
		}
	}
	return host, port, useTLS, nil
}

// ListCollections returns all collection names.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("qdrant: list collections: %w", classify(err))
	}
	return names, nil
}

// CollectionExists reports whether the collection exists.
func (c *Client) CollectionExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("qdrant: collection exists %s: %w", name, classify(err))
	}
	return exists, nil
}

// CreateCollection creates a collection with a single unnamed vector space.
func (c *Client) CreateCollection(ctx context.Context, params vectordb.CollectionParams) error {
	distance, err := toDistance(params.Distance)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.client.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: params.Name,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     params.Dimension,
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", params.Name, classify(err))
	}
	c.logger.Info("created collection", "collection", params.Name, "dimension", params.Dimension, "distance", params.Distance)
	return nil
}

// DeleteCollection removes the collection.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: delete collection %s: %w", name, classify(err))
	}
	return nil
}

// Upsert writes all points in one request, bounded by the upload timeout.
func (c *Client) Upsert(ctx context.Context, collection string, points []core.Point, wait bool) error {
	structs := make([]*qc.PointStruct, len(points))
	for i, p := range points {
		payload, err := qc.TryValueMap(map[string]any{
			"source": p.Payload.Source,
			"text":   p.Payload.Text,
		})
		if err != nil {
			return fmt.Errorf("%w: payload for point %s: %v", core.ErrInvalidArgument, p.ID, err)
		}
		structs[i] = &qc.PointStruct{
			Id:      qc.NewID(p.ID),
			Vectors: qc.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	_, err := c.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: collection,
		Wait:           qc.PtrOf(wait),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %d points into %s: %w", len(points), collection, classify(err))
	}
	return nil
}

// Count returns the exact point count.
func (c *Client) Count(ctx context.Context, collection string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	n, err := c.client.Count(ctx, &qc.CountPoints{
		CollectionName: collection,
		Exact:          qc.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count %s: %w", collection, classify(err))
	}
	return n, nil
}

// Search runs a nearest-neighbour query and returns payloads with the hits.
func (c *Client) Search(ctx context.Context, collection string, vector []float32, limit int) ([]vectordb.ScoredPoint, error) {
	if limit <= 0 {
		return []vectordb.ScoredPoint{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results, err := c.client.Query(ctx, &qc.QueryPoints{
		CollectionName: collection,
		Query:          qc.NewQuery(vector...),
		Limit:          qc.PtrOf(uint64(limit)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: query %s: %w", collection, classify(err))
	}

	hits := make([]vectordb.ScoredPoint, len(results))
	for i, r := range results {
		hits[i] = vectordb.ScoredPoint{
			ID:    r.GetId().GetUuid(),
			Score: r.GetScore(),
			Payload: core.Payload{
				Source: r.GetPayload()["source"].GetStringValue(),
				Text:   r.GetPayload()["text"].GetStringValue(),
			},
		}
	}
	return hits, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func toDistance(d core.Distance) (qc.Distance, error) {
	switch d {
	case core.DistanceCosine, "":
		return qc.Distance_Cosine, nil
	case core.DistanceEuclid:
		return qc.Distance_Euclid, nil
	case core.DistanceDot:
		return qc.Distance_Dot, nil
	default:
		return 0, fmt.Errorf("%w: unsupported distance %q", core.ErrInvalidArgument, d)
	}
}

// classify tags timeouts and availability failures as core.ErrTransientTransport
// and argument failures as core.ErrInvalidArgument. Other errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrTransientTransport, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.DeadlineExceeded, codes.Unavailable, codes.ResourceExhausted,
		codes.Aborted, codes.Internal, codes.Unknown:
		return fmt.Errorf("%w: %w", core.ErrTransientTransport, err)
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %w", core.ErrCollectionExists, err)
	case codes.NotFound:
		return fmt.Errorf("%w: %w", core.ErrCollectionNotFound, err)
	default:
		return err
	}
}
