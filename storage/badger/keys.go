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

package badger

import (
	"encoding/binary"
	"time"
)

const (
	sessionPrefix     = "memses:"
	sessionDatePrefix = "memsesd:"
)

func makeSessionKey(id string) []byte {
	return []byte(sessionPrefix + id)
}

// makeSessionDateKey orders sessions by update time, then ID.
func makeSessionDateKey(updatedAt time.Time, id string) []byte {
	prefixBytes := []byte(sessionDatePrefix)
	buf := make([]byte, len(prefixBytes)+8+len(id))
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(updatedAt.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}
