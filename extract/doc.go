// Package extract parses raw document buffers into full text, per-page
// texts, and basic metadata.
//
// Extraction is the first phase of the ingestion pipeline. Each page in
// the result carries its character offset range within the joined full
// text, which the chunker uses for page attribution.
package extract
