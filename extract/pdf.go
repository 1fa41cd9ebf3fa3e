package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements Extractor for PDF buffers.
type PDFExtractor struct {
	logger *slog.Logger
}

var _ Extractor = (*PDFExtractor)(nil)

// NewPDFExtractor creates a PDF extractor.
//
// Returns the Extractor interface to enforce abstraction.
func NewPDFExtractor() Extractor {
	return &PDFExtractor{
		logger: slog.Default().With("component", "pdf-extractor"),
	}
}

// Extract parses a PDF buffer into full text, per-page texts, and metadata.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (result *Result, err error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	// The pdf package panics on some malformed cross-reference tables
	// instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrMalformedDocument, r)
		}
	}()

	reader := bytes.NewReader(data)
	doc, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	numPages := doc.NumPage()
	e.logger.Debug("extracting pdf text", "pages", numPages)

	pageTexts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := doc.Page(i)
		if page.V.IsNull() {
			pageTexts = append(pageTexts, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrMalformedDocument, i, err)
		}
		pageTexts = append(pageTexts, text)
	}

	return assemble(pageTexts, e.title(doc)), nil
}

// title reads the document title from the PDF info dictionary, if present.
func (e *PDFExtractor) title(doc *pdf.Reader) string {
	trailer := doc.Trailer()
	if trailer.IsNull() {
		return ""
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return ""
	}
	title := info.Key("Title")
	if title.IsNull() {
		return ""
	}
	return title.Text()
}
