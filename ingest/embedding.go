package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/studykit/core"
)

// embed populates the Embedding field of every chunk, issuing batches
// sequentially with a pause between consecutive requests. A progress
// event precedes each batch so a long-running request is visible before
// it returns. Any batch failure aborts the phase; vectors assigned by
// earlier batches are discarded with the run.
func (p *Pipeline) embed(ctx context.Context, chunks []*core.Chunk, onProgress ProgressFunc) error {
	ctx, cancel := p.phaseCtx(ctx)
	defer cancel()

	total := len(chunks)
	for start := 0; start < total; start += p.batchSize {
		if start > 0 && p.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.batchDelay):
			}
		}

		end := min(start+p.batchSize, total)

		emit(onProgress, Progress{
			Phase:           PhaseEmbedding,
			Percent:         percentOf(start, total),
			Message:         fmt.Sprintf("embedding chunks %d-%d of %d", start+1, end, total),
			ChunksProcessed: start,
			TotalChunks:     total,
		})

		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("batch starting at chunk %d: %w", start, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("batch starting at chunk %d: got %d embeddings for %d texts",
				start, len(vectors), len(texts))
		}

		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}

	return nil
}
