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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/config"
	dbRedis "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/db/redis"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/ingest"
	logpkg "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/logger"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/metrics"
	collectionrepo "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/collection"
	deduprepo "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/dedup"
	historyrepo "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/history"
	pointsrepo "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/points"
	searchrepo "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/repository/search"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/bitrix"
	openaiTransport "github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/openai"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/s3"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/transport/webhook"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/analysis"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/pipeline"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/portfolio"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/usecase/retrieval"
	"github.com/rafaelmarins2003/ia-investimentos-comentarios/internal/version"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting advisor webhook server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.Register()

	auditStore, err := historyrepo.Open(cfg.History.Path)
	if err != nil {
		logger.Fatal("Failed to open history store", zap.Error(err))
	}
	defer auditStore.Close()

	// Transports
	embedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		MaxRetries: cfg.Embedding.MaxRetries,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	chatModel := openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	crmClient := bitrix.New(bitrix.Config{
		RestURL:          cfg.CRM.RestURL,
		PortalURL:        cfg.CRM.PortalURL,
		FileField:        cfg.CRM.FileField,
		DownloadUser:     cfg.CRM.DownloadUser,
		DownloadPassword: cfg.CRM.DownloadPassword,
		Timeout:          time.Duration(cfg.CRM.TimeoutSec) * time.Second,
		Logger:           logger,
	})
	letterSource, err := s3.New(s3.Config{
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Prefix:    cfg.Storage.Prefix,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to create object storage client", zap.Error(err))
	}

	// Repositories
	collRepo := collectionrepo.New(store, cfg.Database.KeyPrefix).WithHNSW(collectionrepo.HNSWConfig{
		M:           cfg.Database.HNSWM,
		EFConstruct: cfg.Database.HNSWEFConstruct,
	})
	pointsRepo := pointsrepo.New(store, cfg.Database.KeyPrefix)
	searchRepo := searchrepo.New(store, cfg.Database.KeyPrefix)
	dedupRepo := deduprepo.New(store, cfg.Database.KeyPrefix)

	// Use cases
	ingestSvc := ingest.New(embedder, logger)
	portfolioSvc := portfolio.New(collRepo, pointsRepo, cfg.Embedding.Dimensions, logger)
	retrievalSvc := retrieval.New(embedder, searchRepo, logger)
	chain := analysis.NewChain(retrievalSvc, chatModel, logger)

	pipelineSvc := pipeline.New(
		crmClient, ingestSvc, portfolioSvc, chain, letterSource, dedupRepo, auditStore,
		pipeline.Config{
			CategoryID:  cfg.CRM.CategoryID,
			DownloadDir: cfg.Pipeline.DownloadDir,
		},
		logger,
	)

	handler := webhook.New(pipelineSvc,
		time.Duration(cfg.Pipeline.ProcessTimeoutSec)*time.Second, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	r.Handle("/metrics", promhttp.Handler())
	handler.Routes(r)

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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

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
