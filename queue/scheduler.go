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


package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/poiesic/studykit/ingest"
)

// Config holds the Redis connection and retry policy settings shared by
// the scheduler and the worker.
type Config struct {
	// RedisAddr is the host:port of the Redis instance backing the queue.
	RedisAddr string

	// RedisDB selects the Redis logical database.
	RedisDB int

	// MaxRetry is the number of times a reprocess task is retried after
	// its own failure before the queue gives up on it.
	MaxRetry int

	// RetryDelay is how long a scheduled reprocess waits before its
	// first attempt, and the delay between queue-level retries.
	RetryDelay time.Duration

	// Concurrency is the number of tasks the worker handles in parallel.
	Concurrency int
}

// DefaultConfig returns the default queue configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:   "localhost:6379",
		MaxRetry:    3,
		RetryDelay:  time.Minute,
		Concurrency: 2,
	}
}

func (c Config) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: c.RedisAddr,
		DB:   c.RedisDB,
	}
}

// Scheduler enqueues document reprocess tasks into Redis. It satisfies
// ingest.Scheduler and is safe for concurrent use.
type Scheduler struct {
	client *asynq.Client
	cfg    Config
	logger *slog.Logger
}

var _ ingest.Scheduler = (*Scheduler)(nil)

// NewScheduler creates a scheduler over the configured Redis instance.
func NewScheduler(cfg Config) (*Scheduler, error) {
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = DefaultConfig().RedisAddr
	}
	return &Scheduler{
		client: asynq.NewClient(cfg.redisOpt()),
		cfg:    cfg,
		logger: slog.Default().With("component", "queue"),
	}, nil
}

// Schedule enqueues a reprocess task for the document, delayed by the
// configured retry delay.
func (s *Scheduler) Schedule(ctx context.Context, documentID string) error {
	if documentID == "" {
		return ErrEmptyDocumentID
	}

	task, err := newReprocessTask(documentID)
	if err != nil {
		return err
	}

	info, err := s.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(s.cfg.MaxRetry),
		asynq.ProcessIn(s.cfg.RetryDelay),
	)
	if err != nil {
		return fmt.Errorf("enqueueing reprocess task: %w", err)
	}

	s.logger.Info("scheduled document reprocess",
		"document_id", documentID, "task_id", info.ID, "delay", s.cfg.RetryDelay)
	return nil
}

// Close releases the underlying Redis connection.
func (s *Scheduler) Close() error {
	return s.client.Close()
}
