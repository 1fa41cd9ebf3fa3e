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


package studykit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/studykit/ai"
	"github.com/poiesic/studykit/ai/openai"
	"github.com/poiesic/studykit/chunk"
	"github.com/poiesic/studykit/core"
	"github.com/poiesic/studykit/extract"
	"github.com/poiesic/studykit/ingest"
	"github.com/poiesic/studykit/storage"
	"github.com/poiesic/studykit/storage/badger"
)

// Service bundles the store, the embedder, and the ingestion pipeline
// behind one handle. Distinct documents may be processed concurrently
// through the worker pool; processing of the same document is
// serialized by the document's advisory lock.
type Service struct {
	backend   *badger.Backend
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	embedder  ai.Embedder
	pipeline  *ingest.Pipeline
	pool      *ants.Pool
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig     *ai.Config
	embedder     ai.Embedder
	extractor    extract.Extractor
	scheduler    ingest.Scheduler
	chunkOpts    *chunk.Options
	poolSize     int
	phaseTimeout time.Duration
}

// WithAIConfig sets the embedding provider configuration. Ignored when
// WithServiceEmbedder supplies an embedder directly.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = cfg
	}
}

// WithServiceEmbedder supplies a pre-built embedder instead of the
// OpenAI-compatible default.
func WithServiceEmbedder(e ai.Embedder) ServiceOption {
	return func(o *serviceOptions) {
		o.embedder = e
	}
}

// WithServiceExtractor supplies a document extractor instead of the PDF
// default.
func WithServiceExtractor(e extract.Extractor) ServiceOption {
	return func(o *serviceOptions) {
		o.extractor = e
	}
}

// WithServiceScheduler supplies the retry scheduler failed runs are
// handed to. The default drops them.
func WithServiceScheduler(s ingest.Scheduler) ServiceOption {
	return func(o *serviceOptions) {
		o.scheduler = s
	}
}

// WithServiceChunkOptions overrides the default chunking configuration.
func WithServiceChunkOptions(opts chunk.Options) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkOpts = &opts
	}
}

// WithPoolSize sets the number of documents processed concurrently by
// ProcessAsync.
func WithPoolSize(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.poolSize = n
	}
}

// WithServicePhaseTimeout bounds the wall-clock time of each pipeline
// phase.
func WithServicePhaseTimeout(d time.Duration) ServiceOption {
	return func(o *serviceOptions) {
		o.phaseTimeout = d
	}
}

// NewService opens the store at filePath and wires up the pipeline.
// An empty filePath opens an in-memory store, useful for tests.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
		poolSize: 4,
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, filePath == "")
	if err != nil {
		return nil, err
	}

	documents, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	closeStore := func() {
		chunks.Close()
		documents.Close()
		backend.Close()
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(options.aiConfig)
		if err != nil {
			closeStore()
			return nil, err
		}
	}

	extractor := options.extractor
	if extractor == nil {
		extractor = extract.NewPDFExtractor()
	}

	pipelineOpts := []ingest.Option{}
	if options.scheduler != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithScheduler(options.scheduler))
	}
	if options.chunkOpts != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithChunkOptions(*options.chunkOpts))
	}
	if options.phaseTimeout > 0 {
		pipelineOpts = append(pipelineOpts, ingest.WithPhaseTimeout(options.phaseTimeout))
	}

	pipeline, err := ingest.NewPipeline(extractor, embedder, documents, chunks, pipelineOpts...)
	if err != nil {
		closeStore()
		return nil, err
	}

	pool, err := ants.NewPool(options.poolSize)
	if err != nil {
		closeStore()
		return nil, err
	}

	return &Service{
		backend:   backend,
		documents: documents,
		chunks:    chunks,
		embedder:  embedder,
		pipeline:  pipeline,
		pool:      pool,
		logger:    slog.Default().With("component", "service"),
	}, nil
}

// CreateDocument registers a new pending document and returns it.
func (s *Service) CreateDocument(ctx context.Context, title, sourceURI string) (*core.Document, error) {
	doc := &core.Document{
		Id:        uuid.NewString(),
		Title:     title,
		SourceURI: sourceURI,
		Status:    core.StatusPending,
	}
	return s.documents.CreateDocument(ctx, doc)
}

// Document retrieves a document row by ID.
func (s *Service) Document(ctx context.Context, id string) (*core.Document, error) {
	return s.documents.GetDocument(ctx, id)
}

// Chunks retrieves the persisted chunks of a document in index order.
func (s *Service) Chunks(ctx context.Context, id string) ([]*core.Chunk, error) {
	return s.chunks.GetChunks(ctx, id)
}

// Process runs the ingestion pipeline for the document synchronously.
func (s *Service) Process(ctx context.Context, id string, data []byte, onProgress ingest.ProgressFunc) ingest.Result {
	return s.pipeline.ProcessDocument(ctx, id, data, onProgress)
}

// ProcessAsync submits the document to the worker pool and returns
// immediately. The run outcome is reported through onProgress and the
// document row; failures are additionally logged.
func (s *Service) ProcessAsync(id string, data []byte, onProgress ingest.ProgressFunc) error {
	return s.pool.Submit(func() {
		result := s.pipeline.ProcessDocument(context.Background(), id, data, onProgress)
		if !result.Success {
			s.logger.Error("async ingestion failed", "document_id", id, "error", result.Err)
		}
	})
}

// Search embeds the query and returns the most similar chunks across
// all documents, ordered by similarity.
func (s *Service) Search(ctx context.Context, query string, limit int, minSimilarity float32) ([]*core.ScoredChunk, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.chunks.FindSimilar(ctx, vector, minSimilarity, limit)
}

// DocumentRepository exposes the underlying document repository.
func (s *Service) DocumentRepository() storage.DocumentRepository {
	return s.documents
}

// ChunkRepository exposes the underlying chunk repository.
func (s *Service) ChunkRepository() storage.ChunkRepository {
	return s.chunks
}

// Close waits for in-flight async runs to drain, then releases the
// store. A run that outlives the drain window is abandoned with the
// pool; its document keeps whatever status it last reached.
func (s *Service) Close() error {
	if err := s.pool.ReleaseTimeout(30 * time.Second); err != nil {
		s.logger.Error("error draining worker pool", "err", err)
	}

	if err := s.chunks.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.documents.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
