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

// Package vectordb defines the vector database abstraction and the
// process-wide client provider.
//
// Two backends implement Client:
//   - vectordb/qdrant: remote Qdrant over gRPC (production)
//   - vectordb/chromem: embedded chromem-go, in-memory or persisted to disk
//
// ClientProvider wraps a Constructor with lazy, single-flight initialization.
// The first Get dials the backend and probes it with ListCollections, retrying
// a fixed number of times. Later calls return the cached client without locking.
//
//	provider, err := vectordb.NewClientProvider(func(ctx context.Context) (vectordb.Client, error) {
//	    return qdrant.New(qdrant.Config{URL: url, APIKey: key})
//	})
//	client, err := provider.Get(ctx)
package vectordb
