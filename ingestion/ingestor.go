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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/core"
)

// Loader extracts text chunks from a document on disk.
type Loader interface {
	Load(ctx context.Context, path string) ([]core.Chunk, error)
}

// Uploader copies a source document to durable storage and returns its URI.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Collection string
	Chunks     int          // Chunks produced by the loader
	IDs        []string     // IDs of the stored points
	Count      uint64       // Points in the collection afterwards, zero if the count failed
	CountErr   error        // Why the count is missing, if it is
	ObjectURI  string       // Where the source file was uploaded, empty without an Uploader
	Report     *EmbedReport // Per-batch embedding outcome
	Elapsed    time.Duration
}

// Ingestor runs the full extract, embed, store and count flow for a document.
type Ingestor struct {
	loader       Loader
	uploader     Uploader
	orchestrator *Orchestrator
	upserter     *Upserter
	manager      *CollectionManager
	batchSize    int
	logger       *slog.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor) error

// WithUploader copies each source file to object storage before processing it.
func WithUploader(uploader Uploader) IngestorOption {
	return func(i *Ingestor) error {
		i.uploader = uploader
		return nil
	}
}

// WithBatchSize sets the number of chunks per embedding call.
// Default is 100.
func WithBatchSize(n int) IngestorOption {
	return func(i *Ingestor) error {
		if n < 1 {
			return fmt.Errorf("%w: batch size must be at least 1", core.ErrInvalidArgument)
		}
		i.batchSize = n
		return nil
	}
}

// WithIngestorLogger sets a custom logger.
func WithIngestorLogger(logger *slog.Logger) IngestorOption {
	return func(i *Ingestor) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewIngestor creates an Ingestor from its stages.
func NewIngestor(loader Loader, orchestrator *Orchestrator, upserter *Upserter, manager *CollectionManager, opts ...IngestorOption) (*Ingestor, error) {
	if loader == nil {
		return nil, ErrLoaderRequired
	}
	if orchestrator == nil || upserter == nil || manager == nil {
		return nil, fmt.Errorf("%w: orchestrator, upserter and collection manager are required", core.ErrInvalidArgument)
	}

	i := &Ingestor{
		loader:       loader,
		orchestrator: orchestrator,
		upserter:     upserter,
		manager:      manager,
		batchSize:    DefaultBatchSize,
		logger:       slog.Default().With("component", "ingestor"),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// IngestFile uploads (when configured), loads, embeds and stores the file
// at path into collection. With overwrite set the collection is emptied
// first.
func (i *Ingestor) IngestFile(ctx context.Context, path, collection string, overwrite bool) (*IngestResult, error) {
	collection, err := core.ValidateCollectionName(collection)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var uri string
	if i.uploader != nil {
		uri, err = i.uploader.Upload(ctx, path)
		if err != nil {
			return nil, err
		}
		i.logger.Info("uploaded source document", "path", path, "uri", uri)
	}

	chunks, err := i.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	i.logger.Info("extracted chunks", "path", path, "chunks", len(chunks))

	result, err := i.IngestChunks(ctx, collection, chunks, overwrite)
	if err != nil {
		return nil, err
	}
	result.ObjectURI = uri
	result.Elapsed = time.Since(start)
	return result, nil
}

// IngestChunks embeds and stores already extracted chunks.
//
// Failed embedding batches are skipped. The call only fails when no chunk
// could be embedded or the store itself fails. A failed count is reported in
// the result rather than returned.
func (i *Ingestor) IngestChunks(ctx context.Context, collection string, chunks []core.Chunk, overwrite bool) (*IngestResult, error) {
	collection, err := core.ValidateCollectionName(collection)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}

	start := time.Now()
	vectors, report := i.orchestrator.EmbedAll(ctx, chunks, i.batchSize)
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoEmbeddings, report.Err())
	}
	if perr := report.Err(); perr != nil {
		i.logger.Warn("continuing with partial embeddings", "embedded", len(vectors), "chunks", len(chunks), "err", perr)
	}

	ids, err := i.upserter.Store(ctx, collection, report.AlignedChunks(chunks), vectors, overwrite)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		Collection: collection,
		Chunks:     len(chunks),
		IDs:        ids,
		Report:     report,
	}

	result.Count, result.CountErr = i.manager.CountVectors(ctx, collection)
	if result.CountErr != nil {
		i.logger.Warn("could not fetch vector count", "collection", collection, "err", result.CountErr)
	}

	result.Elapsed = time.Since(start)
	i.logger.Info("ingested document", "collection", collection, "stored", len(ids), "total", result.Count, "elapsed", result.Elapsed)
	return result, nil
}
