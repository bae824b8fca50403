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

package search

import "strings"

// Words ignored when measuring keyword overlap
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {},
	"was": {}, "to": {}, "of": {}, "and": {}, "in": {}, "that": {},
	"have": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {},
	"as": {}, "you": {}, "do": {}, "at": {}, "this": {}, "but": {},
	"by": {}, "from": {}, "what": {}, "how": {}, "does": {}, "which": {},
}

// keywords lowercases text, trims punctuation and drops stop words.
// Duplicates are removed.
func keywords(text string) map[string]struct{} {
	words := strings.Fields(text)
	out := make(map[string]struct{}, len(words))
	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned == "" {
			continue
		}
		if _, stop := stopWords[cleaned]; stop {
			continue
		}
		out[cleaned] = struct{}{}
	}
	return out
}

// keywordCoverage returns the fraction of the query's keywords that occur in
// document, in [0, 1]. A query with no keywords has zero coverage.
func keywordCoverage(document, query string) float32 {
	queryWords := keywords(query)
	if len(queryWords) == 0 {
		return 0
	}
	docWords := keywords(document)

	hits := 0
	for w := range queryWords {
		if _, ok := docWords[w]; ok {
			hits++
		}
	}
	return float32(hits) / float32(len(queryWords))
}
