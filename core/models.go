package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a 64-bit identifier derived from content hashing.
// It is used to build fixed-width storage keys from opaque string IDs.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ProcessingStatus tracks where a document is in the ingestion pipeline.
type ProcessingStatus int

const (
	// StatusPending means the document has been registered but not processed.
	StatusPending ProcessingStatus = iota + 1
	// StatusProcessing means an ingestion run is underway.
	StatusProcessing
	// StatusCompleted means the chunk set has been written durably.
	StatusCompleted
	// StatusFailed means the last run ended in a terminal failure.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s ProcessingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CanTransitionTo reports whether moving from s to next is a legal
// status transition. Within a single run transitions are monotonic:
// processing can only end in completed or failed. A terminal failed
// (or completed) document may re-enter processing on a fresh run.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	switch next {
	case StatusProcessing:
		return s == StatusPending || s == StatusFailed || s == StatusCompleted
	case StatusCompleted:
		return s == StatusProcessing
	case StatusFailed:
		return s == StatusProcessing || s == StatusFailed
	default:
		return false
	}
}

// Document is the pipeline's view of an uploaded document.
// The row is owned by the hosting application; the pipeline mutates
// its processing fields during a run.
type Document struct {
	Id           string
	Title        string
	SourceURI    string // where the original upload lives, used by the retry worker
	PageCount    int
	Status       ProcessingStatus
	ChunkCount   int    // set only on successful completion
	ErrorMessage string // set only on failure
	LockToken    string // advisory processing lock, empty when unlocked
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// PageText is the text of a single document page, produced once by the
// extractor and read-only afterward. Start and End record the page's
// character range [Start, End) within the extracted full text, so that
// later stages can attribute a text span to a page by offset instead of
// searching for it.
type PageText struct {
	Number int // 1-based page number
	Text   string
	Start  int
	End    int
}

// Chunk is a bounded, page-attributed span of document text prepared
// for embedding and retrieval.
type Chunk struct {
	DocumentId string
	Index      int // zero-based, contiguous within a document's run
	Content    string
	PageStart  int
	PageEnd    int
	TokenCount int       // heuristic estimate, not an exact tokenizer count
	Embedding  []float32 // populated by the embedding phase
	InsertedAt time.Time
}

// ScoredChunk is a chunk match from vector similarity search.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}
