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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
	"github.com/poiesic/docchat/retry"
)

const (
	DefaultBatchSize     = 100
	DefaultEmbedAttempts = 5
	DefaultEmbedBase     = time.Second
	DefaultEmbedJitter   = time.Second
)

// BatchResult is the outcome of embedding one contiguous batch of chunks.
type BatchResult struct {
	Index    int   // Position of the batch in the run
	Start    int   // Offset of the first chunk of the batch
	Size     int   // Number of chunks in the batch
	Attempts int   // Embedding calls made for the batch
	Err      error // Final error, nil on success
}

// EmbedReport describes every batch of an EmbedAll run, in batch order.
type EmbedReport struct {
	Batches []BatchResult
}

// Err returns a *core.PartialFailure when at least one batch failed.
func (r *EmbedReport) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	pf := &core.PartialFailure{Total: len(r.Batches), Failed: failed}
	for _, idx := range failed {
		pf.Causes = append(pf.Causes, r.Batches[idx].Err)
	}
	return pf
}

// Failed returns the indexes of the failed batches.
func (r *EmbedReport) Failed() []int {
	var failed []int
	for _, b := range r.Batches {
		if b.Err != nil {
			failed = append(failed, b.Index)
		}
	}
	return failed
}

// Succeeded returns the number of chunks whose batch succeeded.
func (r *EmbedReport) Succeeded() int {
	n := 0
	for _, b := range r.Batches {
		if b.Err == nil {
			n += b.Size
		}
	}
	return n
}

// AlignedChunks returns the chunks of the successful batches, in order.
// The result lines up index for index with the vectors EmbedAll returned.
func (r *EmbedReport) AlignedChunks(chunks []core.Chunk) []core.Chunk {
	aligned := make([]core.Chunk, 0, r.Succeeded())
	for _, b := range r.Batches {
		if b.Err != nil {
			continue
		}
		aligned = append(aligned, chunks[b.Start:b.Start+b.Size]...)
	}
	return aligned
}

// Orchestrator embeds chunks in batches, retrying each batch with
// exponential backoff and jitter. A batch that keeps failing is skipped.
type Orchestrator struct {
	embedders ai.EmbedderSource
	policy    retry.Policy
	pool      *ants.Pool
	progress  io.Writer
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithBatchPolicy replaces the per-batch retry policy.
// Default is 5 attempts, 1s base delay doubled per attempt, plus up to 1s jitter.
func WithBatchPolicy(policy retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) error {
		if policy.MaxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		o.policy = policy
		return nil
	}
}

// WithConcurrency embeds up to n batches at once on a worker pool.
// Default is 1, which embeds batches one after another.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) error {
		if o.pool != nil {
			o.pool.Release()
			o.pool = nil
		}
		if n <= 1 {
			return nil
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		o.pool = pool
		return nil
	}
}

// WithProgress prints embedding progress to w.
func WithProgress(w io.Writer) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.progress = w
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an Orchestrator that embeds through embedders.
func NewOrchestrator(embedders ai.EmbedderSource, opts ...OrchestratorOption) (*Orchestrator, error) {
	if embedders == nil {
		return nil, ErrEmbedderRequired
	}

	o := &Orchestrator{
		embedders: embedders,
		policy:    retry.ExponentialJitter(DefaultEmbedAttempts, DefaultEmbedBase, DefaultEmbedJitter),
		logger:    slog.Default().With("component", "embed-orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}
	return o, nil
}

// EmbedAll embeds chunks in contiguous batches of batchSize (100 when not
// positive). It returns the vectors of the successful batches concatenated
// in batch order, and a report of every batch. Use report.AlignedChunks to
// get the chunks matching the returned vectors.
func (o *Orchestrator) EmbedAll(ctx context.Context, chunks []core.Chunk, batchSize int) ([][]float32, *EmbedReport) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	numBatches := (len(chunks) + batchSize - 1) / batchSize
	report := &EmbedReport{Batches: make([]BatchResult, numBatches)}
	vectors := make([][][]float32, numBatches)
	if numBatches == 0 {
		return [][]float32{}, report
	}

	var tracker *ProgressTracker
	if o.progress != nil {
		tracker = NewProgressTracker(o.progress, "Embedding", len(chunks), batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	embedder, err := o.embedders.Embedder(ctx)
	for i := range numBatches {
		start := i * batchSize
		end := min(start+batchSize, len(chunks))
		report.Batches[i] = BatchResult{Index: i, Start: start, Size: end - start}
		if err != nil {
			report.Batches[i].Err = err
		}
	}
	if err != nil {
		o.logger.Error("embedder unavailable, skipping all batches", "batches", numBatches, "err", err)
		if tracker != nil {
			tracker.Fail(len(chunks))
		}
		return [][]float32{}, report
	}

	run := func(i int) {
		b := &report.Batches[i]
		vecs, attempts, err := o.embedBatch(ctx, embedder, chunks[b.Start:b.Start+b.Size])
		b.Attempts = attempts
		if err != nil {
			b.Err = err
			o.logger.Error("embedding batch failed, skipping", "batch", i, "start", b.Start, "size", b.Size, "attempts", attempts, "err", err)
			if tracker != nil {
				tracker.Fail(b.Size)
			}
			return
		}
		vectors[i] = vecs
		if tracker != nil {
			tracker.Succeed(b.Size)
		}
	}

	if o.pool == nil {
		for i := range numBatches {
			run(i)
		}
	} else {
		var wg sync.WaitGroup
		for i := range numBatches {
			wg.Add(1)
			if err := o.pool.Submit(func() {
				defer wg.Done()
				run(i)
			}); err != nil {
				wg.Done()
				report.Batches[i].Err = fmt.Errorf("failed to schedule batch: %w", err)
			}
		}
		wg.Wait()
	}

	out := make([][]float32, 0, len(chunks))
	for i := range numBatches {
		if report.Batches[i].Err == nil {
			out = append(out, vectors[i]...)
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		o.logger.Warn("some embedding batches failed", "failed", len(failed), "batches", numBatches)
	}
	o.logger.Info("embedded chunks", "chunks", len(out), "batches", numBatches)
	return out, report
}

func (o *Orchestrator) embedBatch(ctx context.Context, embedder ai.Embedder, batch []core.Chunk) ([][]float32, int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var vecs [][]float32
	attempts := 0
	err := retry.Do(ctx, o.policy, func() error {
		attempts++
		v, err := embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d texts", core.ErrTransientTransport, len(v), len(texts))
		}
		vecs = v
		return nil
	})
	if err == nil {
		return vecs, attempts, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, attempts, err
	}
	return nil, attempts, fmt.Errorf("embedding failed after %d attempts: %w", attempts, err)
}

// Release stops the worker pool, if any.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}
