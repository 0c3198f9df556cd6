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

	"github.com/kailas-cloud/tubeask/internal/config"
	"github.com/kailas-cloud/tubeask/internal/db"
	dbRedis "github.com/kailas-cloud/tubeask/internal/db/redis"
	"github.com/kailas-cloud/tubeask/internal/domain"
	logpkg "github.com/kailas-cloud/tubeask/internal/logger"
	"github.com/kailas-cloud/tubeask/internal/metrics"
	"github.com/kailas-cloud/tubeask/internal/repository/answercache"
	"github.com/kailas-cloud/tubeask/internal/repository/archive"
	chiTransport "github.com/kailas-cloud/tubeask/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/tubeask/internal/transport/openai"
	answeruc "github.com/kailas-cloud/tubeask/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/tubeask/internal/usecase/health"
	promptuc "github.com/kailas-cloud/tubeask/internal/usecase/prompt"
	registryuc "github.com/kailas-cloud/tubeask/internal/usecase/registry"
	searchuc "github.com/kailas-cloud/tubeask/internal/usecase/search"
	"github.com/kailas-cloud/tubeask/internal/version"
)

const cacheReadinessTimeout = 10 * time.Second

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

	logger.Info("Starting tubeask API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Int("channels", len(cfg.Channels)),
	)

	// Register domain metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	ctx := context.Background()

	// Build the channel registry — each channel's archive is opened once
	// and bound to its id for the process lifetime.
	registry := registryuc.New()
	for id, ch := range cfg.Channels {
		repo, err := archive.Open(id, ch.StorePath, logger)
		if err != nil {
			logger.Fatal("Failed to open channel archive",
				zap.String("channel", id), zap.String("path", ch.StorePath), zap.Error(err))
		}

		err = registry.Register(domain.ChannelConfig{
			ID:               id,
			StorePath:        ch.StorePath,
			Model:            ch.Model,
			MaxContextLength: ch.MaxContextLength,
			MaxResults:       ch.MaxResults,
			SystemPrompt:     ch.SystemPrompt,
		}, repo)
		if err != nil {
			logger.Fatal("Failed to register channel", zap.String("channel", id), zap.Error(err))
		}

		count, err := repo.Count(ctx)
		if err != nil {
			logger.Warn("Archive opened but count failed", zap.String("channel", id), zap.Error(err))
		} else {
			logger.Info("Channel registered",
				zap.String("channel", id), zap.Int("records", count))
		}
	}
	defer registry.Close()

	// Answer cache — optional, enabled when cache addrs are configured
	var cache answeruc.Cache
	var cachePinger healthuc.CachePinger
	if len(cfg.Cache.Addrs) > 0 {
		var store db.Store
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, cacheReadinessTimeout); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}

		cache = answercache.New(
			store,
			time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.AnswerCacheTotal,
			logger,
		)
		cachePinger = store
		logger.Info("Answer cache enabled", zap.Int("ttl_sec", cfg.Cache.TTLSec))
	}

	// Language-model provider
	completer := openaiProvider.NewCompleter(&openaiProvider.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Logger:  logger,
	})

	// Use case services
	answerSvc := answeruc.New(
		searchuc.New(searchuc.DefaultWeights()),
		promptuc.New(),
		completer,
		cache,
		time.Duration(cfg.Provider.TimeoutSec)*time.Second,
		time.Duration(cfg.Provider.RetryBackoffMS)*time.Millisecond,
		logger,
	)

	healthSvc := healthuc.New(registry, cachePinger, completer)

	// HTTP server
	server := chiTransport.NewServer(registry, answerSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

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
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
