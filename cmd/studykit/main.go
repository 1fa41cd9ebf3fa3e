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

	"github.com/poiesic/studykit"
	"github.com/poiesic/studykit/ai"
	"github.com/poiesic/studykit/chunk"
	"github.com/poiesic/studykit/ingest"
	"github.com/poiesic/studykit/queue"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "studykit",
		Usage: "Document ingestion and semantic search over embedded text chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Ingest a PDF document into the store",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to the PDF file to ingest",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title (defaults to the file name)",
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
						Name:  "max-tokens",
						Usage: "Token budget per chunk",
						Value: 800,
					},
					&cli.IntFlag{
						Name:  "overlap-tokens",
						Usage: "Token budget for chunk overlap",
						Value: 100,
					},
					&cli.StringFlag{
						Name:  "retry-redis",
						Usage: "Redis address; when set, failed ingestions are queued for the retry worker",
					},
					&cli.IntFlag{
						Name:  "retry-redis-db",
						Usage: "Redis logical database for the retry queue",
					},
				},
			},
			{
				Name:   "status",
				Usage:  "Show the status of a document",
				Action: statusCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Document ID",
						Required: true,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search chunks by semantic similarity",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Query text",
						Required: true,
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
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "min-similarity",
						Usage: "Minimum similarity score (0..1)",
						Value: 0.3,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	filePath := c.String("file")
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read document file: %w", err)
	}

	title := c.String("title")
	if title == "" {
		title = filePath
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	serviceOpts := []studykit.ServiceOption{
		studykit.WithAIConfig(aiConfig),
		studykit.WithServiceChunkOptions(chunk.Options{
			MaxTokens:                  c.Int("max-tokens"),
			OverlapTokens:              c.Int("overlap-tokens"),
			PreserveSentenceBoundaries: true,
		}),
	}

	// Scheduling lives on the producing side only: a failed ingest is
	// handed to the queue once, and the retry worker consumes it with
	// the queue's own bounded retries.
	if addr := c.String("retry-redis"); addr != "" {
		queueConfig := queue.DefaultConfig()
		queueConfig.RedisAddr = addr
		queueConfig.RedisDB = c.Int("retry-redis-db")
		scheduler, err := queue.NewScheduler(queueConfig)
		if err != nil {
			return fmt.Errorf("failed to create retry scheduler: %w", err)
		}
		defer scheduler.Close()
		serviceOpts = append(serviceOpts, studykit.WithServiceScheduler(scheduler))
	}

	svc, err := studykit.NewService(c.String("db"), serviceOpts...)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	doc, err := svc.CreateDocument(ctx, title, filePath)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Document: %s\n", doc.Id)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	result := svc.Process(ctx, doc.Id, data, printProgress)
	if !result.Success {
		return fmt.Errorf("ingestion failed: %w", result.Err)
	}

	fmt.Printf("%s\n", doc.Id)
	fmt.Fprintf(os.Stderr, "Ingested %d chunks\n", result.ChunkCount)
	return nil
}

func statusCommand(c *cli.Context) error {
	ctx := context.Background()

	svc, err := studykit.NewService(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	doc, err := svc.Document(ctx, c.String("id"))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	fmt.Printf("ID:          %s\n", doc.Id)
	fmt.Printf("Title:       %s\n", doc.Title)
	fmt.Printf("Source:      %s\n", doc.SourceURI)
	fmt.Printf("Status:      %s\n", doc.Status)
	fmt.Printf("Pages:       %d\n", doc.PageCount)
	fmt.Printf("Chunks:      %d\n", doc.ChunkCount)
	if doc.ErrorMessage != "" {
		fmt.Printf("Error:       %s\n", doc.ErrorMessage)
	}
	fmt.Printf("Updated:     %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	svc, err := studykit.NewService(c.String("db"), studykit.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	results, err := svc.Search(ctx, c.String("query"), c.Int("limit"), float32(c.Float64("min-similarity")))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No matching chunks")
		return nil
	}

	for i, r := range results {
		fmt.Printf("--- %d. score=%.3f document=%s chunk=%d pages=%d-%d\n",
			i+1, r.Score, r.Chunk.DocumentId, r.Chunk.Index, r.Chunk.PageStart, r.Chunk.PageEnd)
		fmt.Println(r.Chunk.Content)
		fmt.Println()
	}
	return nil
}

func printProgress(p ingest.Progress) {
	switch p.Phase {
	case ingest.PhaseEmbedding, ingest.PhaseSaving:
		fmt.Fprintf(os.Stderr, "[%s] %3d%% %s\n", p.Phase, p.Percent, p.Message)
	default:
		fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Phase, p.Message)
	}
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
