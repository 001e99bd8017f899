package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/meridian-ai/ragcore/internal/agentlog"
	"github.com/meridian-ai/ragcore/internal/cache"
	"github.com/meridian-ai/ragcore/internal/config"
	"github.com/meridian-ai/ragcore/internal/confidence"
	"github.com/meridian-ai/ragcore/internal/graph"
	"github.com/meridian-ai/ragcore/internal/handler"
	"github.com/meridian-ai/ragcore/internal/middleware"
	"github.com/meridian-ai/ragcore/internal/model"
	"github.com/meridian-ai/ragcore/internal/providers"
	"github.com/meridian-ai/ragcore/internal/rerank"
	"github.com/meridian-ai/ragcore/internal/repository"
	"github.com/meridian-ai/ragcore/internal/retrieval"
	"github.com/meridian-ai/ragcore/internal/router"
	"github.com/meridian-ai/ragcore/internal/tracker"
)

const Version = "0.1.0"

func getPort(cfg *config.Config) string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return fmt.Sprintf("%d", cfg.Port)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("run: connect database: %w", err)
	}
	defer pool.Close()

	embedder, err := providers.NewVertexEmbedding(ctx, cfg.GCPProject, cfg.EmbeddingLocation, cfg.EmbeddingModel)
	if err != nil {
		return fmt.Errorf("run: init embedding provider: %w", err)
	}
	llm, err := providers.NewVertexLLM(ctx, cfg.GCPProject, cfg.VertexAILocation, cfg.VertexAIModel, cfg.LLMTemperature)
	if err != nil {
		return fmt.Errorf("run: init LLM provider: %w", err)
	}

	chunkRepo := repository.NewChunkRepo(pool)
	lexRepo := repository.NewLexicalRepo(pool)
	hybrid := retrieval.NewHybrid(lexRepo, chunkRepo)
	reranker := rerank.New(providers.NewLLMCrossEncoder(llm))

	nodeCfg := graph.NodeConfig{
		KLex:                               cfg.KLex,
		KVec:                               cfg.KVec,
		KRetriever:                         cfg.KRetriever,
		KCritic:                            cfg.KCritic,
		MMRLambda:                          cfg.MMRLambda,
		MaxIters:                           cfg.MaxIters,
		ConfidenceWeights:                  confidence.Weights(cfg.ConfidenceWeights),
		AbstainThreshold:                   cfg.AbstainThreshold,
		ClarifyThreshold:                   cfg.ClarifyThreshold,
		DefaultThresholdPercent:            cfg.DefaultThresholdPercent,
		ExplicitSelectionThresholdPercent:  cfg.ExplicitSelectionThresholdPercent,
		CompressionBudgetChars:             cfg.CompressionBudgetChars,
	}
	g := graph.New(hybrid, reranker, embedder, llm, nodeCfg)

	logger, err := agentlog.New(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("run: init agent logger: %w", err)
	}
	defer logger.Close()

	queryCache := cache.NewQueryCache(0)
	defer queryCache.Stop()

	th := tracker.New(pool)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	answerLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		MaxRequests: 30,
		Window:      time.Minute,
	})
	defer answerLimiter.Stop()

	deps := &router.Dependencies{
		DB:                 pool,
		Version:            Version,
		FrontendURL:        cfg.FrontendURL,
		Metrics:            metrics,
		MetricsReg:         reg,
		InternalAuthSecret: cfg.InternalAuthSecret,
		AdminMigrateDeps: handler.AdminMigrateDeps{
			RunSQL: func(ctx context.Context, sql string) error {
				_, err := pool.Exec(ctx, sql)
				return err
			},
			MigrationsDir: envOr("MIGRATIONS_DIR", "./migrations"),
		},
		AnswerDeps: handler.AnswerDeps{
			Graph:        g,
			Cache:        queryCache,
			Tracker:      th,
			Observer:     logger.Observer(),
			EntryPoint:   model.EntryPoint(cfg.EntryPoint),
			PipelineType: model.PipelineType(cfg.PipelineType),
		},
		ThreadDeps:        handler.ThreadDeps{Store: th},
		AnswerRateLimiter: answerLimiter,
	}

	r := router.New(deps)

	srv := &http.Server{
		Addr:         ":" + getPort(cfg),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 11 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ragcore server starting", "version", Version, "port", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("run: server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("run: graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
