package extract

import "errors"

var (
	// ErrMalformedDocument indicates the buffer could not be parsed as a
	// structurally valid document.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrEmptyDocument indicates the buffer contains no data.
	ErrEmptyDocument = errors.New("empty document buffer")
)
