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

package memory

import "errors"

var (
	// ErrSummarizerRequired is returned when a Controller is built without a Summarizer.
	ErrSummarizerRequired = errors.New("summarizer is required")

	// ErrChatModelRequired is returned when an LLMSummarizer is built without a model source.
	ErrChatModelRequired = errors.New("chat model source is required")

	// ErrEmptySummary indicates the summarizer produced no text.
	ErrEmptySummary = errors.New("summarizer returned an empty summary")
)
