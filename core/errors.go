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
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every package in the module.
var (
	// ErrConnection indicates a long-lived client could not be constructed
	// after exhausting its connection retries.
	ErrConnection = errors.New("connection error")

	// ErrInvalidArgument indicates a blank or malformed identifier or input.
	// These are rejected immediately and never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransientTransport indicates a timeout or malformed upstream response.
	// Operations failing with this error may be retried.
	ErrTransientTransport = errors.New("transient transport error")

	// ErrLoad indicates a source document could not be read or parsed.
	ErrLoad = errors.New("load error")

	// ErrDimensionMismatch indicates a vector does not match the collection's dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrCollectionNotFound indicates the named collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrCollectionExists indicates a create raced with another creator.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrUploadFailed indicates the source file could not be copied to object storage.
	ErrUploadFailed = errors.New("upload failed")
)

// PartialFailure reports that some batches of a multi-batch operation failed
// while the others succeeded.
type PartialFailure struct {
	Failed []int   // Indexes of the failed batches
	Total  int     // Total number of batches
	Causes []error // Final error of each failed batch, aligned with Failed
}

func (p *PartialFailure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "partial failure: %d of %d batches failed", len(p.Failed), p.Total)
	for i, idx := range p.Failed {
		if i < len(p.Causes) && p.Causes[i] != nil {
			fmt.Fprintf(&sb, "; batch %d: %v", idx, p.Causes[i])
		}
	}
	return sb.String()
}

// Unwrap exposes the per-batch causes to errors.Is and errors.As.
func (p *PartialFailure) Unwrap() []error {
	return p.Causes
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientTransport)
}
