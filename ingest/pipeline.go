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


package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/studykit/ai"
	"github.com/poiesic/studykit/chunk"
	"github.com/poiesic/studykit/extract"
	"github.com/poiesic/studykit/storage"
)

const (
	// DefaultBatchSize is the number of chunks embedded per request.
	DefaultBatchSize = 100

	// DefaultBatchDelay is the pause between consecutive embedding batches.
	DefaultBatchDelay = 100 * time.Millisecond

	// DefaultSaveBatchSize is the number of chunk rows written per sub-batch.
	DefaultSaveBatchSize = 50
)

// Result is the terminal outcome of a pipeline run. A failed run carries
// the phase-wrapped cause in Err; the pipeline itself never returns an
// error from ProcessDocument.
type Result struct {
	Success    bool
	ChunkCount int
	Err        error
}

// Pipeline runs the ingestion phases for a single document.
// Safe for concurrent use across distinct documents; runs for the same
// document are serialized by the advisory lock on the document row.
type Pipeline struct {
	extractor extract.Extractor
	embedder  ai.Embedder
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository

	chunker       *chunk.Chunker
	scheduler     Scheduler
	batchSize     int
	batchDelay    time.Duration
	saveBatchSize int
	phaseTimeout  time.Duration
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkOptions overrides the default chunking configuration.
func WithChunkOptions(opts chunk.Options) Option {
	return func(p *Pipeline) error {
		p.chunker = chunk.New(opts)
		return nil
	}
}

// WithBatchSize sets the embedding batch size.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		p.batchSize = n
		return nil
	}
}

// WithBatchDelay sets the pause between embedding batches. Zero disables
// the pause.
func WithBatchDelay(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("batch delay must not be negative, got %s", d)
		}
		p.batchDelay = d
		return nil
	}
}

// WithSaveBatchSize sets the persistence sub-batch size.
func WithSaveBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("save batch size must be positive, got %d", n)
		}
		p.saveBatchSize = n
		return nil
	}
}

// WithScheduler sets the retry scheduler failed runs are handed to.
func WithScheduler(s Scheduler) Option {
	return func(p *Pipeline) error {
		if s == nil {
			return errors.New("scheduler must not be nil")
		}
		p.scheduler = s
		return nil
	}
}

// WithPhaseTimeout bounds the wall-clock time of each phase. Zero means
// no per-phase deadline; the caller's context still applies.
func WithPhaseTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return fmt.Errorf("phase timeout must not be negative, got %s", d)
		}
		p.phaseTimeout = d
		return nil
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(extractor extract.Extractor, embedder ai.Embedder, documents storage.DocumentRepository, chunks storage.ChunkRepository, opts ...Option) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}

	p := &Pipeline{
		extractor:     extractor,
		embedder:      embedder,
		documents:     documents,
		chunks:        chunks,
		chunker:       chunk.New(chunk.DefaultOptions()),
		scheduler:     NopScheduler{},
		batchSize:     DefaultBatchSize,
		batchDelay:    DefaultBatchDelay,
		saveBatchSize: DefaultSaveBatchSize,
		logger:        slog.Default().With("component", "ingest"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ProcessDocument runs the full ingestion pipeline for one document.
// The raw document buffer is parsed, chunked, embedded, and persisted;
// the document row tracks status throughout. All failures surface in
// the returned Result rather than as an error.
//
// If another run holds the document's processing lock, the run is
// rejected without touching the document's status.
func (p *Pipeline) ProcessDocument(ctx context.Context, documentID string, data []byte, onProgress ProgressFunc) Result {
	token := uuid.NewString()
	if err := p.documents.AcquireProcessingLock(ctx, documentID, token); err != nil {
		p.logger.Warn("could not acquire processing lock",
			"document_id", documentID, "error", err)
		return Result{Err: err}
	}
	defer func() {
		if err := p.documents.ReleaseProcessingLock(context.WithoutCancel(ctx), documentID, token); err != nil {
			p.logger.Error("failed to release processing lock",
				"document_id", documentID, "error", err)
		}
	}()

	chunkCount, err := p.run(ctx, documentID, data, onProgress)
	if err != nil {
		return p.fail(ctx, documentID, err, onProgress)
	}

	emit(onProgress, Progress{
		Phase:           PhaseCompleted,
		Percent:         100,
		Message:         fmt.Sprintf("ingested %d chunks", chunkCount),
		ChunksProcessed: chunkCount,
		TotalChunks:     chunkCount,
	})
	p.logger.Info("document ingestion complete",
		"document_id", documentID, "chunks", chunkCount)
	return Result{Success: true, ChunkCount: chunkCount}
}

// run executes the phases in order and returns the persisted chunk
// count. Any error crosses exactly one boundary: the caller.
func (p *Pipeline) run(ctx context.Context, documentID string, data []byte, onProgress ProgressFunc) (int, error) {
	if err := p.documents.MarkProcessing(ctx, documentID); err != nil {
		return 0, err
	}

	emit(onProgress, Progress{Phase: PhaseParsing, Message: "extracting document text"})
	extracted, err := p.extract(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if err := p.documents.SetExtractionMetadata(ctx, documentID, extracted.Metadata.Title, extracted.Metadata.PageCount); err != nil {
		return 0, err
	}

	emit(onProgress, Progress{Phase: PhaseChunking, Message: "splitting text into chunks"})
	chunks := p.chunker.Split(extracted.FullText, extracted.Pages)
	for _, c := range chunks {
		c.DocumentId = documentID
	}

	// A document with no chunkable text still completes, with a zero
	// chunk count.
	if len(chunks) == 0 {
		if err := p.documents.MarkCompleted(ctx, documentID, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}

	if err := p.embed(ctx, chunks, onProgress); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if err := p.persist(ctx, documentID, chunks, onProgress); err != nil {
		return 0, err
	}

	return len(chunks), nil
}

func (p *Pipeline) extract(ctx context.Context, data []byte) (*extract.Result, error) {
	ctx, cancel := p.phaseCtx(ctx)
	defer cancel()
	return p.extractor.Extract(ctx, data)
}

// fail records the terminal failure, emits the error event, and hands
// the document to the retry scheduler. Persistence failures have
// already been recorded on the document row by the saving phase.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error, onProgress ProgressFunc) Result {
	ctx = context.WithoutCancel(ctx)

	if !errors.Is(cause, ErrPersistence) {
		if err := p.documents.MarkFailed(ctx, documentID, cause.Error()); err != nil {
			p.logger.Error("failed to record document failure",
				"document_id", documentID, "error", err)
		}
	}

	emit(onProgress, Progress{Phase: PhaseError, Message: cause.Error()})

	if err := p.scheduler.Schedule(ctx, documentID); err != nil {
		p.logger.Error("failed to schedule reprocessing",
			"document_id", documentID, "error", err)
	}

	p.logger.Error("document ingestion failed",
		"document_id", documentID, "error", cause)
	return Result{Err: cause}
}

func (p *Pipeline) phaseCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.phaseTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.phaseTimeout)
}

func emit(fn ProgressFunc, event Progress) {
	if fn != nil {
		fn(event)
	}
}

func percentOf(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
