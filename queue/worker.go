package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// ProcessFunc re-runs ingestion for a document. The returned error
// determines whether the queue retries the task.
type ProcessFunc func(ctx context.Context, documentID string) error

// Worker consumes document reprocess tasks from Redis and re-invokes
// processing through the provided ProcessFunc.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	process ProcessFunc
	logger  *slog.Logger
}

// NewWorker creates a worker over the configured Redis instance.
func NewWorker(cfg Config, process ProcessFunc) (*Worker, error) {
	if process == nil {
		return nil, ErrProcessFuncRequired
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = DefaultConfig().RedisAddr
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}

	server := asynq.NewServer(cfg.redisOpt(), asynq.Config{
		Concurrency: cfg.Concurrency,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			return cfg.RetryDelay
		},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		process: process,
		logger:  slog.Default().With("component", "queue-worker"),
	}
	w.mux.HandleFunc(TaskTypeDocumentReprocess, w.handleReprocess)

	return w, nil
}

// Run starts the worker and blocks until Shutdown is called or the
// server fails.
func (w *Worker) Run() error {
	w.logger.Info("starting reprocess worker")
	return w.server.Run(w.mux)
}

// Shutdown stops the worker, waiting for in-flight tasks to finish.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleReprocess(ctx context.Context, task *asynq.Task) error {
	var payload reprocessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// A malformed payload can never succeed; drop it.
		return fmt.Errorf("unmarshaling task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.DocumentID == "" {
		return fmt.Errorf("%w: %w", ErrEmptyDocumentID, asynq.SkipRetry)
	}

	w.logger.Info("reprocessing document", "document_id", payload.DocumentID)
	if err := w.process(ctx, payload.DocumentID); err != nil {
		w.logger.Error("reprocess attempt failed",
			"document_id", payload.DocumentID, "error", err)
		return err
	}
	return nil
}
