package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/loomindex/loomindex/internal/config"
	"github.com/loomindex/loomindex/internal/corpus"
	"github.com/loomindex/loomindex/internal/db"
	dbRedis "github.com/loomindex/loomindex/internal/db/redis"
	"github.com/loomindex/loomindex/internal/domain"
	graphNeo4j "github.com/loomindex/loomindex/internal/graph/neo4j"
	"github.com/loomindex/loomindex/internal/index"
	"github.com/loomindex/loomindex/internal/lexicon"
	logpkg "github.com/loomindex/loomindex/internal/logger"
	"github.com/loomindex/loomindex/internal/metrics"
	"github.com/loomindex/loomindex/internal/repository/embcache"
	chiTransport "github.com/loomindex/loomindex/internal/transport/chi"
	openaiEmb "github.com/loomindex/loomindex/internal/transport/openai"
	embeddinguc "github.com/loomindex/loomindex/internal/usecase/embedding"
	enrichuc "github.com/loomindex/loomindex/internal/usecase/enrich"
	expansionuc "github.com/loomindex/loomindex/internal/usecase/expansion"
	healthuc "github.com/loomindex/loomindex/internal/usecase/health"
	searchuc "github.com/loomindex/loomindex/internal/usecase/search"
	"github.com/loomindex/loomindex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting loomindex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("graph_uri", cfg.Graph.URI),
	)

	ctx := context.Background()

	// Embedding cache. A broken cache degrades to direct computation, so a
	// connection failure here is logged and the server starts without it.
	var store db.Store
	if s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	}); err != nil {
		logger.Warn("Embedding cache unavailable, continuing without it", zap.Error(err))
	} else if err := s.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		s.Close()
		logger.Warn("Embedding cache not ready, continuing without it", zap.Error(err))
	} else {
		store = s
		defer store.Close()
		logger.Info("Connected to embedding cache")
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Embedder chain — composition root
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(embedder, store, cfg.Cache.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	}
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, "openai", cfg.Embedding.Model, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", store != nil),
	)

	// Knowledge graph. Like the cache, unavailability degrades the service
	// (searches return empty related_items) rather than blocking startup.
	var graph *graphNeo4j.Store
	if g, err := graphNeo4j.NewStore(ctx, graphNeo4j.Config{
		URI:          cfg.Graph.URI,
		User:         cfg.Graph.User,
		Password:     cfg.Graph.Password,
		QueryTimeout: time.Duration(cfg.Graph.QueryTimeoutSec) * time.Second,
	}); err != nil {
		logger.Warn("Knowledge graph unavailable, continuing without enrichment", zap.Error(err))
	} else {
		graph = g
		defer graph.Close(context.Background())
		logger.Info("Connected to knowledge graph")
	}

	// Load the corpus and build the similarity index. This embeds every
	// item up front and is the slow part of startup.
	items, err := corpus.Load(cfg.Corpus.DataPath)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.String("path", cfg.Corpus.DataPath), zap.Error(err))
	}
	logger.Info("Corpus loaded", zap.Int("items", len(items)), zap.String("path", cfg.Corpus.DataPath))

	idx, err := index.Build(ctx, items, embedder, cfg.Embedding.BatchSize)
	if err != nil {
		logger.Fatal("Failed to build similarity index", zap.Error(err))
	}
	logger.Info("Similarity index built", zap.Int("items", len(items)))

	// Query expansion via WordNet; disabled when no dictionary is configured.
	var expander searchuc.Expander
	if cfg.Search.WordNetDir != "" {
		wn, err := lexicon.Load(cfg.Search.WordNetDir)
		if err != nil {
			logger.Fatal("Failed to load WordNet dictionary",
				zap.String("dir", cfg.Search.WordNetDir), zap.Error(err))
		}
		expander = expansionuc.New(wn, cfg.Search.MaxExpansions)
		logger.Info("Query expansion enabled",
			zap.String("wordnet_dir", cfg.Search.WordNetDir),
			zap.Int("max_expansions", cfg.Search.MaxExpansions))
	} else {
		logger.Info("Query expansion disabled (no wordnet_dir configured)")
	}

	// Use case services. Pass nil interfaces (not typed nil pointers!) for
	// absent dependencies to keep the nil checks inside the services honest.
	var enricher searchuc.Enricher
	if graph != nil {
		enricher = enrichuc.New(graph, cfg.Search.RelatedK)
	}
	searchSvc := searchuc.New(idx, expander, enricher, cfg.Search.TopK)

	var cachePinger, graphPinger db.Pinger
	if store != nil {
		cachePinger = store
	}
	if graph != nil {
		graphPinger = graph
	}
	healthSvc := healthuc.New(cachePinger, graphPinger, newEmbeddingHealthChecker(base))

	// Create chi server
	server := chiTransport.NewServer(searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
