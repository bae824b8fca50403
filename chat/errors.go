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

package chat

import "errors"

var (
	// ErrRetrieverRequired is returned when a Service is built without a Retriever.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrChatModelRequired is returned when a Service is built without a model source.
	ErrChatModelRequired = errors.New("chat model source is required")

	// ErrMemoryRequired is returned when a Service is built without a memory controller.
	ErrMemoryRequired = errors.New("memory controller is required")

	// ErrBlankQuestion indicates the question was empty or whitespace.
	ErrBlankQuestion = errors.New("question is blank")

	// ErrEmptyAnswer indicates the model replied with no text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)
