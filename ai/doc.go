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

// Package ai provides abstractions for the AI services used by docchat.
//
// This package defines interfaces for text embeddings and chat completions so
// that ingestion, retrieval and memory depend on abstractions rather than on a
// particular model vendor.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Produces a completion for a system and user prompt
//   - AIProvider: Aggregates AI services for convenient initialization
//
// ProviderCache holds the single long-lived AIProvider of a process. It builds
// the provider lazily on first use and guarantees that concurrent first callers
// share one instance.
//
// # Implementation Packages
//
//   - ai/bedrock: Amazon Bedrock via langchaingo and the AWS SDK
//   - ai/openai: OpenAI-compatible APIs (OpenAI, Ollama, vLLM) via langchaingo
//   - ai/anthropic: Anthropic Messages API (chat only)
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (bedrock.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockChatModel) return CONCRETE types so tests can inject behavior
// and read call counts.
//
// # Usage Example
//
//	cache := ai.NewProviderCache(func(ctx context.Context) (ai.AIProvider, error) {
//	    return bedrock.NewProvider(ctx, ai.DefaultConfig())
//	})
//	defer cache.Close()
//
//	embedder, err := cache.Embedder(ctx)
//	vectors, err := embedder.EmbedTexts(ctx, []string{"Hello world"})
package ai
