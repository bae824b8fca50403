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

// Package memory keeps the conversational memory of one chat session in two
// tiers.
//
// The short-term tier holds recent turns verbatim. Every tenth recorded turn
// (see WithCutoverEvery) the whole short-term tier is handed to a Summarizer,
// the returned summary replaces the long-term tier and the short-term tier is
// emptied. A cutover at turn 0 clears both tiers.
//
// Basic usage:
//
//	summarizer, err := memory.NewLLMSummarizer(providerCache)
//	if err != nil {
//	    return err
//	}
//	ctrl, err := memory.NewController(ctx, summarizer)
//	if err != nil {
//	    return err
//	}
//
//	if err := ctrl.RecordTurn(ctx, question, answer); err != nil {
//	    return err
//	}
//	if err := ctrl.MaybeCutover(ctx, ctrl.TurnCount()); err != nil {
//	    log.Printf("cutover failed: %v", err)
//	}
//
// A Controller does no locking. Callers must serialize access to a session.
package memory
