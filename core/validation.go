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

package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateCollectionName trims the name and rejects it if nothing remains.
// Returns the trimmed name on success.
func ValidateCollectionName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: collection name must be a non-empty string", ErrInvalidArgument)
	}
	return trimmed, nil
}

// IsBlank reports whether s contains nothing but whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// SanitizeText removes UTF-16 surrogate code points (U+D800 to U+DFFF) from s.
//
// Go strings cannot carry surrogates as valid UTF-8, so they show up either as
// WTF-8 style three byte sequences (0xED 0xA0..0xBF 0x80..0xBF) or as stray
// invalid bytes. Both are dropped. The returned count is the number of removed
// sequences; zero means s was returned unchanged.
func SanitizeText(s string) (string, int) {
	if utf8.ValidString(s) {
		return s, 0
	}

	var sb strings.Builder
	sb.Grow(len(s))
	removed := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError || size > 1 {
			sb.WriteString(s[i : i+size])
			i += size
			continue
		}
		removed++
		if isEncodedSurrogate(s[i:]) {
			i += 3
		} else {
			i++
		}
	}
	return sb.String(), removed
}

// isEncodedSurrogate reports whether s starts with the generalized UTF-8
// encoding of a code point in the surrogate range.
func isEncodedSurrogate(s string) bool {
	return len(s) >= 3 &&
		s[0] == 0xED &&
		s[1] >= 0xA0 && s[1] <= 0xBF &&
		s[2] >= 0x80 && s[2] <= 0xBF
}
