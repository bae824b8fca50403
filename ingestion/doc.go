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

// Package ingestion turns documents into stored vectors.
//
// The Ingestor drives the whole flow for one file:
//   - Optionally copies the source file to object storage
//   - Extracts and splits the document into chunks
//   - Embeds the chunks in batches with the Orchestrator
//   - Stores chunk/vector pairs with the Upserter
//   - Reports the resulting collection size
//
// The CollectionManager owns collection create, overwrite and delete. It is
// shared by the Upserter and the command line tools.
//
// A failed embedding batch does not fail the run. It is reported in the
// EmbedReport and its chunks are left out of the stored set.
package ingestion
