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

// Package search retrieves the chunks most similar to a question.
//
// A Retriever embeds the question, queries one collection for its nearest
// points and converts them to scored chunks, best first. An optional keyword
// boost reranks hits that share words with the question, and a minimum score
// drops weak matches.
//
// The vector database client and the embedder are resolved lazily on every
// call, so a Retriever can be built before either backend is reachable.
package search
