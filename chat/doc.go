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

// Package chat answers questions from the documents of one collection.
//
// A Service retrieves the chunks closest to the question, builds a prompt
// that restricts the model to those chunks and the recent conversation,
// asks the chat model, and records the exchange in the session's memory.
//
//	svc, err := chat.NewService(retriever, providerCache, controller)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(svc.Ask(ctx, "What is a support vector?"))
//
// Ask never returns an error. Failures are logged and turned into one of a
// few fixed replies. Use Answer to get the error instead.
package chat
