package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/poiesic/studykit/core"
	"github.com/poiesic/studykit/extract"
	"github.com/poiesic/studykit/ingest"
	"github.com/poiesic/studykit/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExtractor returns a fixed extraction result.
type stubExtractor struct {
	result *extract.Result
}

func (e *stubExtractor) Extract(ctx context.Context, data []byte) (*extract.Result, error) {
	return e.result, nil
}

// failingEmbedder always fails batch embedding.
type failingEmbedder struct{}

func (failingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (failingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("embedding service unreachable")
}

func TestNewWorker_RequiresProcessFunc(t *testing.T) {
	_, err := NewWorker(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrProcessFuncRequired)
}

func TestNewReprocessTask(t *testing.T) {
	task, err := newReprocessTask("doc-1")
	require.NoError(t, err)

	assert.Equal(t, TaskTypeDocumentReprocess, task.Type())

	var payload reprocessPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "doc-1", payload.DocumentID)
}

func TestWorker_HandleReprocess(t *testing.T) {
	var processed []string
	w, err := NewWorker(DefaultConfig(), func(ctx context.Context, documentID string) error {
		processed = append(processed, documentID)
		return nil
	})
	require.NoError(t, err)

	task, err := newReprocessTask("doc-1")
	require.NoError(t, err)

	require.NoError(t, w.handleReprocess(context.Background(), task))
	assert.Equal(t, []string{"doc-1"}, processed)
}

func TestWorker_HandleReprocess_ProcessFailurePropagates(t *testing.T) {
	processErr := errors.New("still broken")
	w, err := NewWorker(DefaultConfig(), func(ctx context.Context, documentID string) error {
		return processErr
	})
	require.NoError(t, err)

	task, err := newReprocessTask("doc-1")
	require.NoError(t, err)

	err = w.handleReprocess(context.Background(), task)
	assert.ErrorIs(t, err, processErr)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestWorker_HandleReprocess_MalformedPayloadSkipsRetry(t *testing.T) {
	w, err := NewWorker(DefaultConfig(), func(ctx context.Context, documentID string) error {
		t.Fatal("process must not be called for a malformed payload")
		return nil
	})
	require.NoError(t, err)

	task := asynq.NewTask(TaskTypeDocumentReprocess, []byte("{not json"))
	err = w.handleReprocess(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	task = asynq.NewTask(TaskTypeDocumentReprocess, []byte(`{"document_id":""}`))
	err = w.handleReprocess(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, ErrEmptyDocumentID)
}

func TestWorker_FailedReprocessLeavesRetryToQueue(t *testing.T) {
	docRepo, chunkRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	})

	// Mirror the worker binary's wiring: the pipeline gets no scheduler,
	// so the only retry mechanism for a worker-driven run is asynq
	// re-running this same task within its bounded retry budget.
	text := "Some page sentence."
	p, err := ingest.NewPipeline(
		&stubExtractor{result: &extract.Result{
			FullText: text,
			Pages:    []core.PageText{{Number: 1, Text: text, Start: 0, End: len(text)}},
			Metadata: extract.Metadata{PageCount: 1},
		}},
		failingEmbedder{},
		docRepo, chunkRepo,
		ingest.WithBatchDelay(0),
	)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = docRepo.CreateDocument(ctx, &core.Document{Id: "doc-1"})
	require.NoError(t, err)

	w, err := NewWorker(DefaultConfig(), func(ctx context.Context, documentID string) error {
		result := p.ProcessDocument(ctx, documentID, []byte("raw"), nil)
		if !result.Success {
			return result.Err
		}
		return nil
	})
	require.NoError(t, err)

	task, err := newReprocessTask("doc-1")
	require.NoError(t, err)

	// The failure surfaces to asynq for its bounded retry, and a fresh
	// follow-up task is never enqueued for the same failure.
	err = w.handleReprocess(ctx, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrEmbedding)
	assert.NotErrorIs(t, err, asynq.SkipRetry)

	doc, err := docRepo.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, doc.Status)
}

func TestScheduler_EmptyDocumentID(t *testing.T) {
	s, err := NewScheduler(DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Schedule(context.Background(), ""), ErrEmptyDocumentID)
}
