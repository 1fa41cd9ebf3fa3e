// Package studykit turns raw documents into searchable, embedded text
// chunks backed by an embedded Badger store.
//
// The top-level Service wires the pieces together: PDF extraction,
// sentence-respecting chunking, batched embedding through an
// OpenAI-compatible API, and chunk persistence, with per-document
// status tracking throughout. The subpackages are usable on their own
// when finer control is needed.
package studykit
