package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChunk() *Chunk {
	return &Chunk{
		DocumentId: "doc-1",
		Index:      0,
		Content:    "some chunk content",
		PageStart:  1,
		PageEnd:    2,
		TokenCount: 5,
	}
}

func TestValidateDocument(t *testing.T) {
	doc := &Document{Id: "doc-1", Status: StatusPending}
	require.NoError(t, ValidateDocument(doc))

	assert.ErrorIs(t, ValidateDocument(nil), ErrInvalidDocument)

	doc.Id = ""
	err := ValidateDocument(doc)
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.ErrorIs(t, err, ErrEmptyDocumentID)

	doc.Id = "doc-1"
	doc.Status = ProcessingStatus(99)
	assert.ErrorIs(t, ValidateDocument(doc), ErrInvalidStatus)
}

func TestValidateChunk(t *testing.T) {
	require.NoError(t, ValidateChunk(validChunk()))

	assert.ErrorIs(t, ValidateChunk(nil), ErrInvalidChunk)

	c := validChunk()
	c.DocumentId = ""
	assert.ErrorIs(t, ValidateChunk(c), ErrEmptyDocumentID)

	c = validChunk()
	c.Index = -1
	assert.ErrorIs(t, ValidateChunk(c), ErrInvalidChunkIndex)

	c = validChunk()
	c.Content = ""
	assert.ErrorIs(t, ValidateChunk(c), ErrEmptyContent)

	c = validChunk()
	c.PageStart = 0
	assert.ErrorIs(t, ValidateChunk(c), ErrInvalidPageRange)

	c = validChunk()
	c.PageEnd = 0
	assert.ErrorIs(t, ValidateChunk(c), ErrInvalidPageRange)
}

func TestValidateChunk_EmbeddingOptional(t *testing.T) {
	c := validChunk()
	c.Embedding = nil
	assert.NoError(t, ValidateChunk(c))
}
