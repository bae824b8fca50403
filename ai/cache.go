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

package ai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ProviderFactory constructs an AIProvider. It is called at most once per
// successful ProviderCache initialization.
type ProviderFactory func(ctx context.Context) (AIProvider, error)

// ProviderCache lazily constructs a single long-lived AIProvider and hands the
// same instance to every caller. Concurrent first calls construct it once.
// A failed construction is not cached; the next Get tries again.
type ProviderCache struct {
	factory  ProviderFactory
	provider atomic.Pointer[providerHandle]
	mu       sync.Mutex
	logger   *slog.Logger
}

type providerHandle struct {
	AIProvider
}

// NewProviderCache returns a cache around factory.
func NewProviderCache(factory ProviderFactory) *ProviderCache {
	return &ProviderCache{
		factory: factory,
		logger:  slog.Default().With("component", "ai-provider-cache"),
	}
}

// Get returns the cached provider, constructing it on first use.
func (c *ProviderCache) Get(ctx context.Context) (AIProvider, error) {
	if h := c.provider.Load(); h != nil {
		return h.AIProvider, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another goroutine may have won the race while we waited
	if h := c.provider.Load(); h != nil {
		return h.AIProvider, nil
	}

	if c.factory == nil {
		return nil, errors.New("ai provider cache: no factory configured")
	}

	c.logger.Debug("constructing AI provider")
	p, err := c.factory(ctx)
	if err != nil {
		c.logger.Error("failed to construct AI provider", "err", err)
		return nil, err
	}
	c.provider.Store(&providerHandle{p})
	return p, nil
}

// Embedder is a convenience for Get(ctx).Embedder().
func (c *ProviderCache) Embedder(ctx context.Context) (Embedder, error) {
	p, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Embedder(), nil
}

// ChatModel is a convenience for Get(ctx).ChatModel().
func (c *ProviderCache) ChatModel(ctx context.Context) (ChatModel, error) {
	p, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.ChatModel(), nil
}

// Close closes the cached provider, if one was constructed.
// The cache may be reused afterwards; the next Get constructs a new provider.
func (c *ProviderCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.provider.Swap(nil)
	if h == nil {
		return nil
	}
	return h.Close()
}
