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

// Package qdrant implements vectordb.Client on Qdrant's official gRPC client.
//
// Each call runs under a timeout: Config.Timeout for reads and collection
// management, Config.UploadTimeout for upserts. gRPC failures are mapped onto
// the core error taxonomy so callers can decide what to retry.
package qdrant
