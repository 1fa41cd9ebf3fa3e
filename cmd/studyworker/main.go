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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/studykit"
	"github.com/poiesic/studykit/ai"
	"github.com/poiesic/studykit/queue"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "studyworker",
		Usage: "Background worker that retries failed document ingestions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:     "db",
				Aliases:  []string{"d"},
				Usage:    "Path to BadgerDB database directory",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "redis",
				Usage: "Redis address backing the task queue",
				Value: "localhost:6379",
			},
			&cli.IntFlag{
				Name:  "redis-db",
				Usage: "Redis logical database",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:     "embedding-model",
				Usage:    "Embedding model name",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of documents processed in parallel",
				Value: 2,
			},
			&cli.IntFlag{
				Name:  "max-retry",
				Usage: "Maximum retry attempts per reprocess task",
				Value: 3,
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Delay before a scheduled reprocess runs",
				Value: time.Minute,
			},
		},
		Before: setupLogger,
		Action: runWorker,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runWorker(c *cli.Context) error {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	queueConfig := queue.Config{
		RedisAddr:   c.String("redis"),
		RedisDB:     c.Int("redis-db"),
		MaxRetry:    c.Int("max-retry"),
		RetryDelay:  c.Duration("retry-delay"),
		Concurrency: c.Int("concurrency"),
	}

	// The queue owns the retry budget: a failed attempt propagates its
	// error to asynq, which re-runs the same task up to max-retry times.
	// The service gets no scheduler here, so a failing run cannot spawn
	// a second task chain on top of the queue's own retries.
	svc, err := studykit.NewService(c.String("db"),
		studykit.WithAIConfig(aiConfig),
	)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	worker, err := queue.NewWorker(queueConfig, func(ctx context.Context, documentID string) error {
		return reprocess(ctx, svc, documentID)
	})
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Redis: %s\n", queueConfig.RedisAddr)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	return worker.Run()
}

// reprocess re-runs ingestion for a document from its recorded source
// file. Reprocessing always starts from scratch: extraction, chunking,
// embedding, and persistence all run again.
func reprocess(ctx context.Context, svc *studykit.Service, documentID string) error {
	doc, err := svc.Document(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}
	if doc.SourceURI == "" {
		return fmt.Errorf("document %s has no source to reprocess from", documentID)
	}

	data, err := os.ReadFile(doc.SourceURI)
	if err != nil {
		return fmt.Errorf("reading source for document %s: %w", documentID, err)
	}

	result := svc.Process(ctx, documentID, data, nil)
	if !result.Success {
		return result.Err
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
