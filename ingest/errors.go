package ingest

import "errors"

var (
	// ErrExtraction indicates the parsing phase failed.
	ErrExtraction = errors.New("document extraction failed")

	// ErrEmbedding indicates the embedding phase failed. Vectors from
	// earlier, already-completed batches are discarded with the run.
	ErrEmbedding = errors.New("embedding generation failed")

	// ErrPersistence indicates the saving phase failed. Rows from
	// already-written sub-batches may remain in the store.
	ErrPersistence = errors.New("chunk persistence failed")

	// ErrExtractorRequired is returned when an extractor is not provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")
)
