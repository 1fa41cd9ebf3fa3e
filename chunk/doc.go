// Package chunk splits extracted document text into token-bounded,
// sentence-respecting, overlapping windows prepared for embedding.
//
// Token counts are heuristic estimates (ceil of character length over
// four), sentence boundaries follow a punctuation-plus-whitespace rule,
// and page attribution resolves each sentence's character offset
// against the page ranges recorded by the extractor. All three are
// documented approximations, deterministic for a given input and
// configuration.
package chunk
