package storage

import (
	"context"

	"github.com/poiesic/studykit/core"
)

// DocumentRepository provides operations for managing document rows.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// CreateDocument adds a new document row. If the status is unset,
	// it defaults to pending. Sets InsertedAt and UpdatedAt.
	// Returns ErrDuplicateKey if a row with the same ID exists.
	CreateDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the row doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// AcquireProcessingLock atomically sets the document's lock token.
	// Returns ErrLocked if another run already holds the lock, making
	// the at-most-one-concurrent-run rule an enforced invariant.
	AcquireProcessingLock(ctx context.Context, id, token string) error

	// ReleaseProcessingLock clears the lock token.
	// Returns ErrLockMismatch if the row is locked with a different token.
	ReleaseProcessingLock(ctx context.Context, id, token string) error

	// MarkProcessing transitions the document into the processing state
	// and clears the counters and error message from any prior run.
	MarkProcessing(ctx context.Context, id string) error

	// SetExtractionMetadata records the page count and, when non-empty,
	// the title discovered during extraction.
	SetExtractionMetadata(ctx context.Context, id, title string, pageCount int) error

	// MarkCompleted transitions the document to completed and records
	// the chunk count. Valid only from the processing state.
	MarkCompleted(ctx context.Context, id string, chunkCount int) error

	// MarkFailed transitions the document to failed and records the
	// error message. Returns ErrInvalidTransition from completed.
	MarkFailed(ctx context.Context, id, message string) error

	// Close releases repository resources.
	Close() error
}

// ChunkRepository provides operations for managing chunk rows.
// Implementations must be thread-safe and support concurrent access.
type ChunkRepository interface {
	// AddChunks writes chunk rows. Sets InsertedAt on each chunk.
	// Chunks are validated before writing.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunks retrieves all chunks for a document in index order.
	GetChunks(ctx context.Context, documentID string) ([]*core.Chunk, error)

	// DeleteChunks removes all chunks for a document.
	// Returns the number of rows deleted.
	DeleteChunks(ctx context.Context, documentID string) (int, error)

	// FindSimilar finds chunks similar to the given vector across all
	// documents. Returns chunks with similarity >= minSimilarity, up to
	// limit results, ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredChunk, error)

	// Close releases repository resources.
	Close() error
}
