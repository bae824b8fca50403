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
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Chunk is a bounded span of source text plus its position in the source document.
// Chunks are produced by the document loader and never modified afterwards.
type Chunk struct {
	Text        string
	SourceIndex int
}

// Payload is the metadata stored alongside each vector.
type Payload struct {
	Source string // "chunk_<i>" where i is the index of the chunk in the store call
	Text   string // Sanitized, trimmed chunk text
}

// Point is the unit stored in the vector database.
type Point struct {
	ID      string // UUID
	Vector  []float32
	Payload Payload
}

// ScoredChunk is a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk
	ID     string
	Source string
	Score  float32
}

// Distance is the similarity metric a collection is configured with.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceEuclid Distance = "euclid"
	DistanceDot    Distance = "dot"
)

// DefaultVectorDim matches the Titan v2 embedding model.
const DefaultVectorDim uint64 = 1024

// ParseDistance converts a configuration string into a Distance.
func ParseDistance(s string) (Distance, error) {
	switch Distance(strings.ToLower(strings.TrimSpace(s))) {
	case DistanceCosine, "":
		return DistanceCosine, nil
	case DistanceEuclid, "euclidean", "l2":
		return DistanceEuclid, nil
	case DistanceDot, "dotproduct", "ip":
		return DistanceDot, nil
	default:
		return "", fmt.Errorf("%w: unknown distance %q", ErrInvalidArgument, s)
	}
}

// Role identifies who produced a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single (role, content) entry in the short-term memory tier.
type Turn struct {
	Role    Role
	Content string
}

// MemoryState is the persisted form of one conversation session's memory.
type MemoryState struct {
	ShortTerm []Turn
	LongTerm  string
	TurnCount int
}

// SourceLabel returns the payload source label for the chunk at index i.
func SourceLabel(i int) string {
	return fmt.Sprintf("chunk_%d", i)
}

// ParseSourceLabel returns the chunk index encoded in a SourceLabel.
func ParseSourceLabel(label string) (int, bool) {
	rest, ok := strings.CutPrefix(label, "chunk_")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// ContentID derives a deterministic UUID from the collection, source label and text
// using BLAKE2b. Identical inputs always produce identical IDs, so re-ingesting
// the same chunk overwrites its point instead of adding a duplicate.
func ContentID(collection, source, text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = one UUID
	h.Write([]byte(collection))
	h.Write([]byte{0})
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(text))
	sum := h.Sum(nil)

	var id uuid.UUID
	copy(id[:], sum)
	// Stamp version 4 / RFC 4122 variant bits so vector stores accept it as a UUID
	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80
	return id.String()
}

// NewPointID returns a fresh random point identifier.
func NewPointID() string {
	return uuid.NewString()
}
