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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/retry"
)

const (
	DefaultConnectRetries = 3
	DefaultConnectBackoff = 2 * time.Second
)

// ClientProvider lazily constructs, health-checks and caches a single Client.
// Concurrent first calls construct exactly one client; every caller observes
// the same instance afterwards.
type ClientProvider struct {
	construct Constructor
	retries   int
	backoff   time.Duration
	client    atomic.Pointer[clientHandle]
	mu        sync.Mutex
	logger    *slog.Logger
}

type clientHandle struct {
	Client
}

// ProviderOption configures a ClientProvider.
type ProviderOption func(*ClientProvider) error

// WithRetries sets the number of connection attempts.
// Default is 3.
func WithRetries(n int) ProviderOption {
	return func(p *ClientProvider) error {
		if n < 1 {
			return fmt.Errorf("%w: retries must be at least 1", core.ErrInvalidArgument)
		}
		p.retries = n
		return nil
	}
}

// WithBackoff sets the fixed wait between connection attempts.
// Default is 2s.
func WithBackoff(d time.Duration) ProviderOption {
	return func(p *ClientProvider) error {
		if d < 0 {
			return fmt.Errorf("%w: backoff must not be negative", core.ErrInvalidArgument)
		}
		p.backoff = d
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *ClientProvider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewClientProvider creates a provider that builds clients with construct.
func NewClientProvider(construct Constructor, opts ...ProviderOption) (*ClientProvider, error) {
	if construct == nil {
		return nil, fmt.Errorf("%w: constructor is required", core.ErrInvalidArgument)
	}

	p := &ClientProvider{
		construct: construct,
		retries:   DefaultConnectRetries,
		backoff:   DefaultConnectBackoff,
		logger:    slog.Default().With("component", "vectordb-provider"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Get returns the cached client, connecting on first use.
// Connection failures are retried with a fixed backoff; on exhaustion the
// returned error wraps core.ErrConnection.
func (p *ClientProvider) Get(ctx context.Context) (Client, error) {
	if h := p.client.Load(); h != nil {
		return h.Client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if h := p.client.Load(); h != nil {
		return h.Client, nil
	}

	var client Client
	attempt := 0
	err := retry.Do(ctx, retry.Fixed(p.retries, p.backoff), func() error {
		attempt++
		c, err := p.connect(ctx)
		if err != nil {
			p.logger.Warn("vector database connection attempt failed",
				"attempt", attempt, "maxAttempts", p.retries, "err", err)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, fmt.Errorf("%w: interrupted while connecting: %w", core.ErrConnection, err)
		}
		p.logger.Error("could not connect to vector database", "attempts", p.retries, "err", err)
		return nil, fmt.Errorf("%w: vector database unreachable after %d attempts: %w", core.ErrConnection, p.retries, err)
	}

	p.logger.Info("connected to vector database", "attempts", attempt)
	p.client.Store(&clientHandle{client})
	return client, nil
}

// connect constructs a client and probes it by listing collections.
func (p *ClientProvider) connect(ctx context.Context) (Client, error) {
	c, err := p.construct(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := c.ListCollections(ctx); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			p.logger.Debug("error closing unhealthy client", "err", closeErr)
		}
		return nil, fmt.Errorf("liveness probe: %w", err)
	}
	return c, nil
}

// Close closes the cached client, if any.
func (p *ClientProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.client.Swap(nil)
	if h == nil {
		return nil
	}
	return h.Close()
}
