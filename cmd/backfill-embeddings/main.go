// backfill-embeddings enqueues River embedding jobs for published entries
// whose embedding is missing or stale (content hash mismatch). Run this as a
// one-off or scheduled task; workers in the API process the jobs. With
// -gc-orphans it also deletes embeddings whose entry no longer exists.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/enablehub/hub/internal/jobs"
	"github.com/enablehub/hub/internal/repository"
	"github.com/enablehub/hub/pkg/database"
)

var errEmbeddingModelRequired = errors.New("EMBEDDING_MODEL is required")

const (
	defaultEmbeddingMaxAttempts = 3
	exitSuccess                 = 0
	exitFailure                 = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	gcOrphans := flag.Bool("gc-orphans", false, "delete embeddings whose entry no longer exists")
	flag.Parse()

	// Load .env for consistency with the main API server (godotenv.Load() there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	embeddingModel := os.Getenv("EMBEDDING_MODEL")
	if embeddingModel == "" {
		slog.Error(errEmbeddingModelRequired.Error())

		return exitFailure
	}

	maxAttempts := getEnvAsInt("EMBEDDING_MAX_ATTEMPTS", defaultEmbeddingMaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = defaultEmbeddingMaxAttempts
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client: no workers here, the API process runs them.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.EmbeddingsQueueName: {},
		},
		Workers: river.NewWorkers(),
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	entriesRepo := repository.NewEntriesRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)
	inserter := jobs.NewRiverJobInserter(riverClient, maxAttempts)

	enqueued, err := jobs.BackfillEmbeddings(ctx, entriesRepo, inserter, embeddingModel, nil, slog.Default())
	if err != nil {
		slog.Error("Backfill failed", "error", err)

		return exitFailure
	}

	slog.Info("Backfill complete", "enqueued", enqueued)
	fmt.Printf("Enqueued %d embedding job(s).\n", enqueued)

	if *gcOrphans {
		deleted, err := embeddingsRepo.DeleteOrphaned(ctx)
		if err != nil {
			slog.Error("Orphan cleanup failed", "error", err)

			return exitFailure
		}

		slog.Info("Orphan cleanup complete", "deleted", deleted)
		fmt.Printf("Deleted %d orphaned embedding(s).\n", deleted)
	}

	return exitSuccess
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return n
}
