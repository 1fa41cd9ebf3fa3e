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


package studykit

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/studykit/ai/mock"
	"github.com/poiesic/studykit/core"
	"github.com/poiesic/studykit/extract"
	"github.com/poiesic/studykit/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testExtractor returns a fixed extraction result regardless of input.
type testExtractor struct {
	result *extract.Result
}

func (e *testExtractor) Extract(ctx context.Context, data []byte) (*extract.Result, error) {
	return e.result, nil
}

func fixedExtraction(pageTexts ...string) *extract.Result {
	var full string
	pages := make([]core.PageText, len(pageTexts))
	for i, text := range pageTexts {
		if i > 0 {
			full += "\n"
		}
		start := len(full)
		full += text
		pages[i] = core.PageText{Number: i + 1, Text: text, Start: start, End: len(full)}
	}
	return &extract.Result{
		FullText: full,
		Pages:    pages,
		Metadata: extract.Metadata{PageCount: len(pages)},
	}
}

func setupService(t *testing.T) *Service {
	svc, err := NewService("",
		WithServiceEmbedder(mock.NewMockEmbedder()),
		WithServiceExtractor(&testExtractor{result: fixedExtraction(
			"The mitochondria is the powerhouse of the cell.",
			"Photosynthesis converts light into chemical energy.",
		)}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestService_ProcessDocumentEndToEnd(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, "Biology Notes", "/uploads/bio.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, doc.Id)
	assert.Equal(t, core.StatusPending, doc.Status)

	result := svc.Process(ctx, doc.Id, []byte("raw pdf bytes"), nil)
	require.NoError(t, result.Err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ChunkCount)

	loaded, err := svc.Document(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, loaded.Status)
	assert.Equal(t, 2, loaded.PageCount)

	chunks, err := svc.Chunks(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.NotEmpty(t, chunks[0].Embedding)
}

func TestService_ProcessAsync(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, "Async Doc", "")
	require.NoError(t, err)

	done := make(chan ingest.Phase, 1)
	err = svc.ProcessAsync(doc.Id, []byte("raw"), func(p ingest.Progress) {
		if p.Phase == ingest.PhaseCompleted || p.Phase == ingest.PhaseError {
			done <- p.Phase
		}
	})
	require.NoError(t, err)

	select {
	case phase := <-done:
		assert.Equal(t, ingest.PhaseCompleted, phase)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for async processing")
	}

	loaded, err := svc.Document(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, loaded.Status)
}

func TestService_Search(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, "Searchable", "")
	require.NoError(t, err)
	result := svc.Process(ctx, doc.Id, []byte("raw"), nil)
	require.True(t, result.Success)

	// The mock embedder is deterministic, so querying with the chunk's
	// own content yields an exact match at the top.
	chunks, err := svc.Chunks(ctx, doc.Id)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	results, err := svc.Search(ctx, chunks[0].Content, 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[0].Content, results[0].Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
}

func TestService_CloseWaitsForAsyncRuns(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		time.Sleep(200 * time.Millisecond)
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}

	svc, err := NewService("",
		WithServiceEmbedder(embedder),
		WithServiceExtractor(&testExtractor{result: fixedExtraction(
			"A slow sentence to embed.",
		)}),
	)
	require.NoError(t, err)

	doc, err := svc.CreateDocument(context.Background(), "Slow Doc", "")
	require.NoError(t, err)

	done := make(chan ingest.Phase, 1)
	err = svc.ProcessAsync(doc.Id, []byte("raw"), func(p ingest.Progress) {
		if p.Phase == ingest.PhaseCompleted || p.Phase == ingest.PhaseError {
			done <- p.Phase
		}
	})
	require.NoError(t, err)

	// Close must not return while the submitted run is still embedding.
	require.NoError(t, svc.Close())

	select {
	case phase := <-done:
		assert.Equal(t, ingest.PhaseCompleted, phase)
	default:
		t.Fatal("Close returned before the async run finished")
	}
}

func TestService_DocumentNotFound(t *testing.T) {
	svc := setupService(t)

	_, err := svc.Document(context.Background(), "missing")
	assert.Error(t, err)
}
