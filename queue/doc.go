// Package queue provides a Redis-backed retry scheduler and worker for
// document reprocessing, built on asynq. The scheduler side satisfies
// the pipeline's Scheduler interface and enqueues a reprocess task when
// an ingestion run fails; the worker side consumes those tasks and
// re-invokes processing from scratch. Retry policy (attempt count,
// backoff) lives entirely in the queue, never in the pipeline.
package queue
