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

package docchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/ai/anthropic"
	"github.com/poiesic/docchat/ai/bedrock"
	"github.com/poiesic/docchat/ai/openai"
	"github.com/poiesic/docchat/chat"
	"github.com/poiesic/docchat/config"
	"github.com/poiesic/docchat/ingestion"
	"github.com/poiesic/docchat/loader"
	"github.com/poiesic/docchat/memory"
	"github.com/poiesic/docchat/objectstore"
	"github.com/poiesic/docchat/search"
	"github.com/poiesic/docchat/storage"
	"github.com/poiesic/docchat/storage/badger"
	"github.com/poiesic/docchat/vectordb"
	"github.com/poiesic/docchat/vectordb/chromem"
	"github.com/poiesic/docchat/vectordb/qdrant"
)

// App wires the ingestion, retrieval and chat components from one Config.
type App struct {
	cfg          *config.Config
	providers    *ai.ProviderCache
	clients      *vectordb.ClientProvider
	manager      *ingestion.CollectionManager
	orchestrator *ingestion.Orchestrator
	ingestor     *ingestion.Ingestor
	backend      *badger.Backend
	sessions     storage.SessionRepository
	logger       *slog.Logger
}

// Option configures an App.
type Option func(*options)

type options struct {
	providerFactory ai.ProviderFactory
	constructor     vectordb.Constructor
	uploader        ingestion.Uploader
	progress        io.Writer
	concurrency     int
	batchSize       int
	contentIDs      bool
	connectBackoff  time.Duration
	uploadBackoff   time.Duration
	sessionsInMem   bool
}

// WithProviderFactory replaces the AI provider built from the config.
func WithProviderFactory(factory ai.ProviderFactory) Option {
	return func(o *options) {
		o.providerFactory = factory
	}
}

// WithVectorConstructor replaces the vector database client built from the config.
func WithVectorConstructor(construct vectordb.Constructor) Option {
	return func(o *options) {
		o.constructor = construct
	}
}

// WithUploader replaces the S3 uploader built from the config.
func WithUploader(uploader ingestion.Uploader) Option {
	return func(o *options) {
		o.uploader = uploader
	}
}

// WithProgress prints embedding progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithConcurrency embeds up to n batches at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithBatchSize sets the number of chunks per embedding call.
func WithBatchSize(n int) Option {
	return func(o *options) {
		o.batchSize = n
	}
}

// WithContentIDs derives point IDs from chunk content so re-ingesting a
// document replaces its points.
func WithContentIDs() Option {
	return func(o *options) {
		o.contentIDs = true
	}
}

// WithBackoffs sets the waits between vector database connection attempts
// and between upsert attempts.
func WithBackoffs(connect, upload time.Duration) Option {
	return func(o *options) {
		o.connectBackoff = connect
		o.uploadBackoff = upload
	}
}

// WithInMemorySessions keeps chat sessions in an in-memory badger store,
// ignoring SESSION_DB_PATH.
func WithInMemorySessions() Option {
	return func(o *options) {
		o.sessionsInMem = true
	}
}

// Open builds an App. Nothing is dialed until first use, except the session
// store, which is opened immediately when configured.
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("docchat: config is required")
	}
	o := &options{
		batchSize:      ingestion.DefaultBatchSize,
		connectBackoff: vectordb.DefaultConnectBackoff,
		uploadBackoff:  ingestion.DefaultUploadBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.providerFactory == nil {
		o.providerFactory = providerFactory(cfg)
	}
	if o.constructor == nil {
		o.constructor = vectorConstructor(cfg)
	}

	app := &App{
		cfg:       cfg,
		providers: ai.NewProviderCache(o.providerFactory),
		logger:    slog.Default().With("component", "docchat"),
	}
	if err := app.wire(o); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(o *options) error {
	var err error
	a.clients, err = vectordb.NewClientProvider(o.constructor, vectordb.WithBackoff(o.connectBackoff))
	if err != nil {
		return err
	}

	a.manager, err = ingestion.NewCollectionManager(a.clients)
	if err != nil {
		return err
	}

	upserterOpts := []ingestion.UpserterOption{
		ingestion.WithVectorParams(a.cfg.VectorDim, a.cfg.Distance()),
		ingestion.WithUploadBackoff(o.uploadBackoff),
	}
	if o.contentIDs {
		upserterOpts = append(upserterOpts, ingestion.WithContentIDs())
	}
	upserter, err := ingestion.NewUpserter(a.manager, a.clients, upserterOpts...)
	if err != nil {
		return err
	}

	orchestratorOpts := []ingestion.OrchestratorOption{ingestion.WithConcurrency(o.concurrency)}
	if o.progress != nil {
		orchestratorOpts = append(orchestratorOpts, ingestion.WithProgress(o.progress))
	}
	a.orchestrator, err = ingestion.NewOrchestrator(a.providers, orchestratorOpts...)
	if err != nil {
		return err
	}

	docs, err := loader.New()
	if err != nil {
		return err
	}

	ingestorOpts := []ingestion.IngestorOption{ingestion.WithBatchSize(o.batchSize)}
	uploader := o.uploader
	if uploader == nil && a.cfg.S3Bucket != "" {
		s3, err := objectstore.NewS3Uploader(context.Background(), a.cfg.S3Bucket, a.cfg.AWSRegion)
		if err != nil {
			return err
		}
		uploader = s3
	}
	if uploader != nil {
		ingestorOpts = append(ingestorOpts, ingestion.WithUploader(uploader))
	}
	a.ingestor, err = ingestion.NewIngestor(docs, a.orchestrator, upserter, a.manager, ingestorOpts...)
	if err != nil {
		return err
	}

	switch {
	case o.sessionsInMem:
		a.backend, err = badger.OpenBackend("", true)
	case a.cfg.SessionDBPath != "":
		a.backend, err = badger.OpenBackend(a.cfg.SessionDBPath, false)
	}
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	if a.backend != nil {
		a.sessions = badger.NewSessionRepository(a.backend)
	}
	return nil
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Ingestor returns the document ingestor.
func (a *App) Ingestor() *ingestion.Ingestor {
	return a.ingestor
}

// Collections returns the collection lifecycle manager.
func (a *App) Collections() *ingestion.CollectionManager {
	return a.manager
}

// Sessions returns the session store, or nil when sessions are not persisted.
func (a *App) Sessions() storage.SessionRepository {
	return a.sessions
}

// IngestFile ingests the file at path into the configured collection.
func (a *App) IngestFile(ctx context.Context, path string, overwrite bool) (*ingestion.IngestResult, error) {
	return a.ingestor.IngestFile(ctx, path, a.cfg.QdrantCollection, overwrite)
}

// CountVectors returns the number of points in the configured collection.
func (a *App) CountVectors(ctx context.Context) (uint64, error) {
	return a.manager.CountVectors(ctx, a.cfg.QdrantCollection)
}

// NewRetriever returns a retriever over collection, or over the configured
// collection when collection is empty.
func (a *App) NewRetriever(collection string, opts ...search.Option) (*search.Retriever, error) {
	if collection == "" {
		collection = a.cfg.QdrantCollection
	}
	return search.NewRetriever(a.clients, a.providers, collection, opts...)
}

// NewChat returns a chat service for one session. With a session store and a
// non-empty sessionID the session's memory is loaded and kept up to date.
func (a *App) NewChat(ctx context.Context, sessionID string, opts ...chat.Option) (*chat.Service, error) {
	retriever, err := a.NewRetriever("")
	if err != nil {
		return nil, err
	}
	summarizer, err := memory.NewLLMSummarizer(a.providers)
	if err != nil {
		return nil, err
	}

	var memOpts []memory.Option
	if a.sessions != nil && sessionID != "" {
		memOpts = append(memOpts, memory.WithSessionStore(a.sessions, sessionID))
	}
	ctrl, err := memory.NewController(ctx, summarizer, memOpts...)
	if err != nil {
		return nil, err
	}
	return chat.NewService(retriever, a.providers, ctrl, opts...)
}

// Close releases every component in reverse order of construction.
func (a *App) Close() error {
	var errs []error
	if a.sessions != nil {
		errs = append(errs, a.sessions.Close())
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("error closing session store", "err", err)
			errs = append(errs, err)
		}
	}
	if a.orchestrator != nil {
		a.orchestrator.Release()
	}
	if a.manager != nil {
		a.manager.Close()
	}
	if a.clients != nil {
		if err := a.clients.Close(); err != nil {
			a.logger.Error("error closing vector database client", "err", err)
			errs = append(errs, err)
		}
	}
	if err := a.providers.Close(); err != nil {
		a.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// providerFactory builds the AI provider named by cfg, pairing a separate
// chat model with the embedder when the providers differ.
func providerFactory(cfg *config.Config) ai.ProviderFactory {
	return func(ctx context.Context) (ai.AIProvider, error) {
		embedCfg := cfg.EmbeddingAIConfig()
		var base ai.AIProvider
		var err error
		switch embedCfg.Provider {
		case ai.ProviderOpenAI:
			base, err = openai.NewProvider(embedCfg)
		default:
			base, err = bedrock.NewProvider(ctx, embedCfg)
		}
		if err != nil {
			return nil, err
		}
		if !cfg.SeparateChat() {
			return base, nil
		}

		chatCfg := cfg.ChatAIConfig()
		var model ai.ChatModel
		switch chatCfg.EffectiveChatProvider() {
		case ai.ProviderAnthropic:
			model, err = anthropic.NewChatModel(chatCfg)
		case ai.ProviderOpenAI:
			model, err = openai.NewChatModel(chatCfg)
		default:
			model, err = bedrock.NewChatModel(ctx, chatCfg)
		}
		if err != nil {
			_ = base.Close()
			return nil, err
		}
		return ai.WithChat(base, model), nil
	}
}

// vectorConstructor dials the backend named by cfg.
func vectorConstructor(cfg *config.Config) vectordb.Constructor {
	return func(ctx context.Context) (vectordb.Client, error) {
		if cfg.VectorBackend == config.BackendChromem {
			if cfg.ChromemPath == "" {
				return chromem.NewMemory(), nil
			}
			client, err := chromem.NewPersistent(cfg.ChromemPath, false)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
		client, err := qdrant.New(qdrant.Config{
			URL:           cfg.QdrantURL,
			APIKey:        cfg.QdrantAPIKey,
			Timeout:       cfg.QdrantClientTimeout,
			UploadTimeout: cfg.QdrantUploadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
