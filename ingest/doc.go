// Package ingest orchestrates the document ingestion pipeline.
//
// A Pipeline runs four phases strictly in order for one document:
//
//	parsing -> chunking -> embedding -> saving
//
// ending in completed or, from any phase, error. Phases never overlap,
// embedding batches are issued one at a time, and every phase failure
// is caught exactly once at the pipeline boundary: ProcessDocument
// returns a structured Result instead of an error, records the failure
// on the document row, and hands the document to the injected retry
// Scheduler. Progress events are emitted to an optional callback as
// each phase advances.
//
// The pipeline assumes at most one concurrent run per document and
// enforces it with an advisory lock on the document row.
package ingest
