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


package chunk

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/studykit/core"
)

// Options configures the chunker.
type Options struct {
	// MaxTokens is the nominal token budget per chunk. A single sentence
	// whose estimate exceeds it is still emitted whole.
	MaxTokens int

	// OverlapTokens is the budget for trailing sentences of a finalized
	// chunk re-seeded into the next one to preserve local context.
	OverlapTokens int

	// PreserveSentenceBoundaries selects sentence-respecting accumulation.
	// When false, the text is cut into fixed-size character windows.
	PreserveSentenceBoundaries bool
}

// DefaultOptions returns the default chunking configuration.
func DefaultOptions() Options {
	return Options{
		MaxTokens:                  800,
		OverlapTokens:              100,
		PreserveSentenceBoundaries: true,
	}
}

// Chunker splits extracted text into token-bounded, overlapping chunks,
// each tagged with an inferred page range. Chunkers are stateless per
// invocation and safe for concurrent use.
type Chunker struct {
	opts   Options
	logger *slog.Logger
}

// New creates a chunker. A non-positive MaxTokens and a negative
// OverlapTokens fall back to the defaults; an OverlapTokens of zero is
// kept and disables overlap seeding.
func New(opts Options) *Chunker {
	defaults := DefaultOptions()
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = defaults.OverlapTokens
	}
	return &Chunker{
		opts:   opts,
		logger: slog.Default().With("component", "chunker"),
	}
}

// Options returns the effective chunking configuration.
func (c *Chunker) Options() Options {
	return c.opts
}

// Split splits fullText into chunks. Pages must be the extractor's
// page list for the same text; page attribution uses each sentence's
// character offset against the recorded page ranges. The returned
// chunks have contiguous zero-based indexes; DocumentId and Embedding
// are left for later stages to populate.
func (c *Chunker) Split(fullText string, pages []core.PageText) []*core.Chunk {
	if strings.TrimSpace(fullText) == "" {
		return nil
	}

	if !c.opts.PreserveSentenceBoundaries {
		return c.windowSplit(fullText, pages)
	}

	sentences := splitSentences(fullText)
	for i := range sentences {
		sentences[i].tokens = EstimateTokens(sentences[i].text)
		sentences[i].page = pageForOffset(pages, sentences[i].start)
	}

	var chunks []*core.Chunk
	var buf []sentence
	bufTokens := 0

	for _, s := range sentences {
		if bufTokens > 0 && bufTokens+s.tokens > c.opts.MaxTokens {
			chunks = append(chunks, finalize(buf, bufTokens))

			// Seed the next chunk with trailing sentences of the one just
			// finalized, then the sentence that triggered the overflow.
			buf = append(c.overlapSeeds(buf), s)
			bufTokens = 0
			for _, b := range buf {
				bufTokens += b.tokens
			}
			continue
		}
		buf = append(buf, s)
		bufTokens += s.tokens
	}

	if len(buf) > 0 {
		chunks = append(chunks, finalize(buf, bufTokens))
	}

	for i := range chunks {
		chunks[i].Index = i
	}

	c.logger.Debug("split text into chunks",
		"sentences", len(sentences), "chunks", len(chunks))
	return chunks
}

// overlapSeeds returns the longest suffix of buf whose cumulative token
// estimate fits the overlap budget. The suffix preserves sentence order.
func (c *Chunker) overlapSeeds(buf []sentence) []sentence {
	if c.opts.OverlapTokens <= 0 {
		return nil
	}
	total := 0
	i := len(buf)
	for i > 0 && total+buf[i-1].tokens <= c.opts.OverlapTokens {
		total += buf[i-1].tokens
		i--
	}
	seeds := make([]sentence, len(buf)-i)
	copy(seeds, buf[i:])
	return seeds
}

// finalize assembles the accumulated sentences into a chunk. The token
// count is the running sum of per-sentence estimates, the same
// accounting used for the size decision.
func finalize(buf []sentence, tokens int) *core.Chunk {
	texts := make([]string, len(buf))
	pageStart, pageEnd := buf[0].page, buf[0].page
	for i, s := range buf {
		texts[i] = s.text
		if s.page < pageStart {
			pageStart = s.page
		}
		if s.page > pageEnd {
			pageEnd = s.page
		}
	}
	return &core.Chunk{
		Content:    strings.Join(texts, " "),
		PageStart:  pageStart,
		PageEnd:    pageEnd,
		TokenCount: tokens,
	}
}

// windowSplit cuts the text into fixed-size character windows sized
// from the token budgets, without respecting sentence boundaries.
// Window edges are nudged back to rune starts so no rune is split.
func (c *Chunker) windowSplit(fullText string, pages []core.PageText) []*core.Chunk {
	window := c.opts.MaxTokens * 4
	step := (c.opts.MaxTokens - c.opts.OverlapTokens) * 4
	if step < 1 {
		step = 1
	}

	var chunks []*core.Chunk
	for start := 0; start < len(fullText); start += step {
		end := start + window
		if end >= len(fullText) {
			end = len(fullText)
		} else {
			for end > start && !utf8.RuneStart(fullText[end]) {
				end--
			}
		}

		content := strings.TrimSpace(fullText[start:end])
		if content != "" {
			chunks = append(chunks, &core.Chunk{
				Index:      len(chunks),
				Content:    content,
				PageStart:  pageForOffset(pages, start),
				PageEnd:    pageForOffset(pages, end-1),
				TokenCount: EstimateTokens(content),
			})
		}
		if end == len(fullText) {
			break
		}
	}
	return chunks
}
