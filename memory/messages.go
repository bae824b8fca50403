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

import (
	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/llms"
)

// Buffer prefixes used when rendering turns as a transcript.
const (
	HumanPrefix = "Human"
	AIPrefix    = "AI"
)

// Messages converts turns into langchaingo chat messages.
func Messages(turns []core.Turn) []llms.ChatMessage {
	msgs := make([]llms.ChatMessage, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case core.RoleAssistant:
			msgs = append(msgs, llms.AIChatMessage{Content: t.Content})
		default:
			msgs = append(msgs, llms.HumanChatMessage{Content: t.Content})
		}
	}
	return msgs
}

// Turns converts langchaingo chat messages back into turns. Messages that are
// neither human nor AI are skipped.
func Turns(msgs []llms.ChatMessage) []core.Turn {
	turns := make([]core.Turn, 0, len(msgs))
	for _, m := range msgs {
		switch m.GetType() {
		case llms.ChatMessageTypeHuman:
			turns = append(turns, core.Turn{Role: core.RoleUser, Content: m.GetContent()})
		case llms.ChatMessageTypeAI:
			turns = append(turns, core.Turn{Role: core.RoleAssistant, Content: m.GetContent()})
		}
	}
	return turns
}

// Transcript renders turns one per line as "Human: ..." and "AI: ...".
func Transcript(turns []core.Turn) (string, error) {
	return llms.GetBufferString(Messages(turns), HumanPrefix, AIPrefix)
}
