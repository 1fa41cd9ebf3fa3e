package ingest

import "context"

// Scheduler is the retry collaborator the pipeline enqueues into when a
// run ends in terminal failure. The pipeline itself never retries;
// whether and when to re-invoke processing from scratch is the
// scheduler's decision. Implementations must be safe for concurrent use.
type Scheduler interface {
	// Schedule requests that the document be reprocessed later.
	Schedule(ctx context.Context, documentID string) error
}

// NopScheduler is a Scheduler that does nothing. It is the default for
// pipelines constructed without an explicit scheduler, and the natural
// substitute in tests.
type NopScheduler struct{}

var _ Scheduler = NopScheduler{}

// Schedule implements Scheduler as a no-op.
func (NopScheduler) Schedule(ctx context.Context, documentID string) error {
	return nil
}
