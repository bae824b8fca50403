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

import (
	"fmt"
	"strings"

	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/memory"
	"github.com/tmc/langchaingo/prompts"
)

// Fixed replies returned by Ask.
const (
	ReplyBlankQuestion = "Please enter a valid question."
	ReplyTrouble       = "I'm having trouble right now. Could you rephrase that?"
	ReplyEmptyAnswer   = "I apologize, but I couldn't generate a proper response."
	ReplyNoContext     = "I'm sorry, I could not find enough information to answer that."
)

// noContext stands in for the context block when retrieval finds nothing.
const noContext = "No relevant context found."

// DefaultSystemPrompt restricts the model to the retrieved context.
const DefaultSystemPrompt = `You are a helpful, concise and knowledgeable assistant.
You answer questions strictly using only the information provided in <context>.
You do not use prior knowledge or make assumptions beyond the given context.

Instructions:
- If the answer is found in the context, answer concisely and accurately.
- If the answer is not found in the context, reply exactly with:
"` + ReplyNoContext + `"
- Do not mention your limitations or training data.
- Do not repeat the context in your answer.`

const userTemplate = `{{if .history}}Conversation so far:
{{.history}}

{{end}}<context>
{{.context}}
</context>

Question:
{{.question}}`

func newUserTemplate() prompts.PromptTemplate {
	return prompts.NewPromptTemplate(userTemplate, []string{"history", "context", "question"})
}

// formatContext numbers the retrieved chunks, best first.
func formatContext(chunks []core.ScoredChunk) string {
	if len(chunks) == 0 {
		return noContext
	}
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s", i+1, strings.TrimSpace(c.Text))
	}
	return sb.String()
}

// renderUserPrompt fills the user template from the question, the retrieved
// chunks and the recent turns.
func renderUserPrompt(tmpl prompts.PromptTemplate, question string, chunks []core.ScoredChunk, recent []core.Turn) (string, error) {
	history, err := memory.Transcript(recent)
	if err != nil {
		return "", fmt.Errorf("failed to render history: %w", err)
	}
	return tmpl.Format(map[string]any{
		"history":  history,
		"context":  formatContext(chunks),
		"question": strings.TrimSpace(question),
	})
}
