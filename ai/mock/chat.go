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

package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockChatModel is a test double for ai.ChatModel.
// It records every prompt it receives.
type MockChatModel struct {
	// GenerateFunc is called by Generate if set.
	// If nil, echoes a short deterministic reply.
	GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	mu          sync.Mutex
	callCount   int
	userPrompts []string
}

// NewMockChatModel creates a mock chat model with default behavior.
func NewMockChatModel() *MockChatModel {
	return &MockChatModel{}
}

// Generate returns GenerateFunc's result, or a reply derived from the prompt.
func (m *MockChatModel) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.userPrompts = append(m.userPrompts, userPrompt)
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, systemPrompt, userPrompt)
	}

	lines := strings.Count(userPrompt, "\n") + 1
	return fmt.Sprintf("mock reply (%d prompt lines)", lines), nil
}

// CallCount returns the number of times Generate was called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastUserPrompt returns the most recent user prompt, or "" if none.
func (m *MockChatModel) LastUserPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.userPrompts) == 0 {
		return ""
	}
	return m.userPrompts[len(m.userPrompts)-1]
}

// Reset clears the call history and custom function.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.userPrompts = nil
	m.GenerateFunc = nil
}
