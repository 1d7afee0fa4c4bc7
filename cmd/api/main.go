// Command api runs the enablement hub search API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/enablehub/hub/internal/api/handlers"
	"github.com/enablehub/hub/internal/api/middleware"
	"github.com/enablehub/hub/internal/config"
	"github.com/enablehub/hub/internal/googleai"
	"github.com/enablehub/hub/internal/jobs"
	"github.com/enablehub/hub/internal/observability"
	"github.com/enablehub/hub/internal/openai"
	"github.com/enablehub/hub/internal/repository"
	"github.com/enablehub/hub/internal/service"
	"github.com/enablehub/hub/pkg/cache"
	"github.com/enablehub/hub/pkg/database"
)

const meterScope = "github.com/enablehub/hub/internal/observability"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	// Observability providers. Both are nil when the corresponding exporter is disabled.
	meterProvider, err := observability.NewMeterProvider(cfg)
	if err != nil {
		slog.Error("Failed to create meter provider", "error", err)
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)

		metrics, err = observability.NewMetrics(meterProvider.Meter(meterScope))
		if err != nil {
			slog.Error("Failed to create metrics", "error", err)
			os.Exit(1)
		}
	}

	tracerProvider, err := observability.NewTracerProvider(cfg)
	if err != nil {
		slog.Error("Failed to create tracer provider", "error", err)
		os.Exit(1)
	}

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	// Register pgvector types on every connection so halfvec scans work.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL,
		database.WithAfterConnect(func(ctx context.Context, conn *pgx.Conn) error {
			return pgxvec.RegisterTypes(ctx, conn)
		}),
	)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	embeddingClient, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		slog.Error("Failed to create embedding client", "error", err)
		os.Exit(1)
	}

	entriesRepo := repository.NewEntriesRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)

	rateLimiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)

	riverClient, err := initRiver(ctx, db, cfg, embeddingClient, entriesRepo, embeddingsRepo, rateLimiter, metrics)
	if err != nil {
		slog.Error("Failed to initialize River job queue", "error", err)
		os.Exit(1)
	}

	syncService := service.NewSyncService(service.SyncServiceParams{
		EmbeddingClient: embeddingClient,
		Upserter:        embeddingsRepo,
		Model:           cfg.EmbeddingModel,
		TrackedType:     cfg.WebhookContentType,
		Limiter:         rateLimiter,
		Metrics:         embeddingMetrics(metrics),
	})

	// Assistant-mode answer synthesis needs an OpenAI chat model; without the
	// key the search path still works and aiResponse is simply absent.
	var synthesizer service.Synthesizer
	if cfg.OpenAIAPIKey != "" {
		chatClient := openai.NewClient(cfg.OpenAIAPIKey, openai.WithChatModel(cfg.AnswerModel))
		synthesizer = service.NewAnswerSynthesizer(chatClient, slog.Default())
	} else {
		slog.Info("Answer synthesis disabled (OPENAI_API_KEY not set)")
	}

	queryCache, err := cache.NewLoaderCache[string, []float32](cfg.QueryCacheSize, func(s string) string { return s })
	if err != nil {
		slog.Error("Failed to create query embedding cache", "error", err)
		os.Exit(1)
	}

	searchService := service.NewSearchService(service.SearchServiceParams{
		Store:           entriesRepo,
		Vectors:         embeddingsRepo,
		EmbeddingClient: embeddingClient,
		Synthesizer:     synthesizer,
		EmbeddingCache:  queryCache,
		Model:           cfg.EmbeddingModel,
		MinScore:        cfg.SearchScoreThreshold,
		Metrics:         searchMetrics(metrics),
		CacheMetrics:    cacheMetrics(metrics),
	})

	searchHandler := handlers.NewSearchHandler(searchService)
	webhookHandler := handlers.NewWebhookHandler(syncService)
	healthHandler := handlers.NewHealthHandler()

	// Public endpoints (no authentication required).
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", healthHandler.Check)

	// Protected endpoints (API key required).
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /v1/search", searchHandler.Search)
	protectedMux.HandleFunc("GET /v1/coe/search", searchHandler.CoESearch)
	protectedMux.HandleFunc("POST /v1/webhooks/content", webhookHandler.HandleContentChange)

	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)

	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", protectedHandler)
	mainMux.Handle("/", publicMux)

	// Middleware chain, outermost first: RequestID so every log line carries
	// the ID, then tracing, metrics, logging, and the body size cap.
	var handler http.Handler = mainMux
	handler = middleware.MaxBody(cfg.MaxRequestBodyBytes, apiMetrics(metrics))(handler)
	handler = middleware.Logging(slog.Default())(handler)
	handler = middleware.Metrics(httpMetrics(metrics))(handler)
	handler = otelhttp.NewHandler(handler, "hub-search-api")
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stop accepting new HTTP requests.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// 2. Stop River (waits for in-flight jobs to complete).
	if riverClient != nil {
		slog.Info("Stopping River job queue...")

		if err := riverClient.Stop(shutdownCtx); err != nil {
			slog.Error("River forced to shutdown", "error", err)
		}
	}

	// 3. Flush telemetry.
	if err := observability.ShutdownMeterProvider(shutdownCtx, meterProvider); err != nil {
		slog.Error("Meter provider shutdown failed", "error", err)
	}

	if err := observability.ShutdownTracerProvider(shutdownCtx, tracerProvider); err != nil {
		slog.Error("Tracer provider shutdown failed", "error", err)
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified level, wrapping the JSON
// handler so records carry trace_id/span_id/request_id from context.
func setupLogging(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	inner := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(inner)))
}

// newEmbeddingClient builds the configured embedding provider client.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, errors.New("GOOGLE_API_KEY is required when EMBEDDING_PROVIDER=google")
		}

		return googleai.NewClient(ctx, cfg.GoogleAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
		)
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}

		return openai.NewClient(cfg.OpenAIAPIKey,
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
		), nil
	}
}

// initRiver initializes the River job queue client and the embedding worker.
func initRiver(
	ctx context.Context,
	db *pgxpool.Pool,
	cfg *config.Config,
	embeddingClient service.EmbeddingClient,
	entriesRepo *repository.EntriesRepository,
	embeddingsRepo *repository.EmbeddingsRepository,
	rateLimiter *rate.Limiter,
	metrics *observability.Metrics,
) (*river.Client[pgx.Tx], error) {
	embeddingWorker := jobs.NewEmbeddingWorker(jobs.EmbeddingWorkerDeps{
		Entries:         entriesRepo,
		Embeddings:      embeddingsRepo,
		EmbeddingClient: embeddingClient,
		Model:           cfg.EmbeddingModel,
		RateLimiter:     rateLimiter,
		Metrics:         embeddingMetrics(metrics),
	})

	workers := river.NewWorkers()
	river.AddWorker(workers, embeddingWorker)

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			jobs.EmbeddingsQueueName: {MaxWorkers: cfg.EmbeddingMaxConcurrent},
		},
		Workers:      workers,
		ErrorHandler: &jobs.ErrorHandler{},
		JobTimeout:   60 * time.Second,
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, err
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, err
	}

	return riverClient, nil
}

func searchMetrics(m *observability.Metrics) observability.SearchMetrics {
	if m == nil {
		return nil
	}

	return m.Search
}

func embeddingMetrics(m *observability.Metrics) observability.EmbeddingMetrics {
	if m == nil {
		return nil
	}

	return m.Embeddings
}

func cacheMetrics(m *observability.Metrics) observability.CacheMetrics {
	if m == nil {
		return nil
	}

	return m.Cache
}

func apiMetrics(m *observability.Metrics) middleware.RequestBodyTooLargeRecorder {
	if m == nil {
		return nil
	}

	return m.API
}

func httpMetrics(m *observability.Metrics) observability.HTTPMetrics {
	if m == nil {
		return nil
	}

	return m.HTTP
}
