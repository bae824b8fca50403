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

// Package bedrock implements the ai interfaces on Amazon Bedrock.
//
// Embeddings go through langchaingo's embeddings/bedrock package and chat
// completions through llms/bedrock. Both share a single bedrockruntime client
// built from the default AWS credential chain for the configured region.
//
//	provider, err := bedrock.NewProvider(ctx, ai.NewConfig(ai.WithRegion("ap-south-1")))
package bedrock
