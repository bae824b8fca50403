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

package ai

import "errors"

// composite pairs the embedder of one provider with a chat model from elsewhere.
type composite struct {
	base AIProvider
	chat ChatModel
}

// WithChat returns a provider that uses base for embeddings and chat for completions.
// Closing the result closes base.
func WithChat(base AIProvider, chat ChatModel) AIProvider {
	return &composite{base: base, chat: chat}
}

func (c *composite) Embedder() Embedder {
	return c.base.Embedder()
}

func (c *composite) ChatModel() ChatModel {
	return c.chat
}

func (c *composite) Close() error {
	var errs []error
	if closer, ok := c.chat.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, c.base.Close())
	return errors.Join(errs...)
}
