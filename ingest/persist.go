package ingest

import (
	"context"
	"fmt"

	"github.com/poiesic/studykit/core"
)

// persist replaces the document's chunk set with the given chunks,
// writing in sub-batches and emitting a progress event after each one.
// On success the document is marked completed with the chunk count; on
// any write failure the document is marked failed here, since the
// failure already has durable consequences: rows written by earlier
// sub-batches may remain until the next successful run replaces them.
func (p *Pipeline) persist(ctx context.Context, documentID string, chunks []*core.Chunk, onProgress ProgressFunc) error {
	ctx, cancel := p.phaseCtx(ctx)
	defer cancel()

	if _, err := p.chunks.DeleteChunks(ctx, documentID); err != nil {
		return p.persistFailed(ctx, documentID, fmt.Errorf("clearing previous chunks: %w", err))
	}

	total := len(chunks)
	for start := 0; start < total; start += p.saveBatchSize {
		end := min(start+p.saveBatchSize, total)

		if err := p.chunks.AddChunks(ctx, chunks[start:end]...); err != nil {
			return p.persistFailed(ctx, documentID, fmt.Errorf("batch starting at chunk %d: %w", start, err))
		}

		emit(onProgress, Progress{
			Phase:           PhaseSaving,
			Percent:         percentOf(end, total),
			Message:         fmt.Sprintf("saved %d of %d chunks", end, total),
			ChunksProcessed: end,
			TotalChunks:     total,
		})
	}

	if err := p.documents.MarkCompleted(ctx, documentID, total); err != nil {
		return p.persistFailed(ctx, documentID, err)
	}

	return nil
}

func (p *Pipeline) persistFailed(ctx context.Context, documentID string, cause error) error {
	wrapped := fmt.Errorf("%w: %w", ErrPersistence, cause)
	if err := p.documents.MarkFailed(context.WithoutCancel(ctx), documentID, wrapped.Error()); err != nil {
		p.logger.Error("failed to record persistence failure",
			"document_id", documentID, "error", err)
	}
	return wrapped
}
