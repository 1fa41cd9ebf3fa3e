package extract

import (
	"context"
	"strings"

	"github.com/poiesic/studykit/core"
)

// Metadata holds basic document metadata discovered during extraction.
type Metadata struct {
	PageCount int
	Title     string
}

// Result is the output of a successful extraction.
//
// FullText is the page texts joined in page order with a newline
// separator. Pages preserves page order and 1-based numbering, and each
// page records its character range within FullText so later stages can
// attribute text spans to pages by offset.
type Result struct {
	FullText string
	Pages    []core.PageText
	Metadata Metadata
}

// Extractor parses a raw document buffer into text and per-page texts.
// Extraction is a pure transform over the buffer: no side effects, and
// structural parse failures are returned, never retried here.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Result, error)
}

// assemble builds a Result from per-page texts, recording each page's
// offset range in the joined full text.
func assemble(pageTexts []string, title string) *Result {
	var sb strings.Builder
	pages := make([]core.PageText, len(pageTexts))

	for i, text := range pageTexts {
		if i > 0 {
			sb.WriteByte('\n')
		}
		start := sb.Len()
		sb.WriteString(text)
		pages[i] = core.PageText{
			Number: i + 1,
			Text:   text,
			Start:  start,
			End:    sb.Len(),
		}
	}

	return &Result{
		FullText: sb.String(),
		Pages:    pages,
		Metadata: Metadata{
			PageCount: len(pages),
			Title:     title,
		},
	}
}
