package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/cafematch/internal/config"
	"github.com/kailas-cloud/cafematch/internal/db"
	dbRedis "github.com/kailas-cloud/cafematch/internal/db/redis"
	"github.com/kailas-cloud/cafematch/internal/domain/preference"
	"github.com/kailas-cloud/cafematch/internal/domain/search/score"
	logpkg "github.com/kailas-cloud/cafematch/internal/logger"
	"github.com/kailas-cloud/cafematch/internal/metrics"
	"github.com/kailas-cloud/cafematch/internal/repository/catalog"
	"github.com/kailas-cloud/cafematch/internal/repository/preferences"
	"github.com/kailas-cloud/cafematch/internal/repository/relcache"
	chiTransport "github.com/kailas-cloud/cafematch/internal/transport/chi"
	openaiRel "github.com/kailas-cloud/cafematch/internal/transport/openai"
	"github.com/kailas-cloud/cafematch/internal/usecase/health"
	"github.com/kailas-cloud/cafematch/internal/usecase/relevance"
	searchuc "github.com/kailas-cloud/cafematch/internal/usecase/search"
	"github.com/kailas-cloud/cafematch/internal/usecase/session"
	"github.com/kailas-cloud/cafematch/internal/version"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP display API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, environment())
	},
}

func runServe(ctx context.Context, env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cafematch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog", cfg.Catalog.Path),
		zap.Bool("cache", cfg.Cache.Enabled()),
		zap.Bool("force_fallback", cfg.Fallback.Force),
	)

	// Register relevance and search metrics explicitly (no init())
	metrics.RegisterRelevanceMetrics()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	logger.Info("Catalog loaded", zap.Int("cafes", cat.Len()))

	var store db.Store
	if cfg.Cache.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		defer s.Close()
		if err := s.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to relevance cache", zap.Strings("addrs", cfg.Cache.Addrs))
		store = s
	}

	rel := buildRelevance(cfg, store, logger)
	prefs := preferences.New(preference.Default())
	searchSvc := searchuc.New(rel, cat, prefs, logger)

	debounce := cfg.Search.Debounce()
	sessions := session.New(func() *searchuc.Engine {
		return searchuc.NewEngine(searchSvc, debounce, logger)
	}, cfg.Search.MaxSessions, logger)
	defer sessions.CloseAll()

	// Pass nil interface (not typed nil pointer) when the cache is off.
	var cachePinger health.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := health.New(cat, cachePinger, rel)

	server := chiTransport.NewServer(sessions, cat, prefs, rel, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys, chiTransport.OperatorRoutes))
	r.Use(metrics.Middleware())
	handler := chiTransport.NewRouter(server, chiTransport.RouterOptions{BaseRouter: r})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		sweepSessions(gctx, sessions, time.Duration(cfg.Search.SessionIdleSec)*time.Second)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// buildRelevance assembles the scoring chain: OpenAI -> Cached -> policy client with heuristic fallback.
func buildRelevance(cfg config.Config, store db.Store, logger *zap.Logger) *relevance.Client {
	base := openaiRel.NewRelevanceClient(&openaiRel.Config{
		APIKey:      cfg.Relevance.APIKey,
		BaseURL:     cfg.Relevance.BaseURL,
		Model:       cfg.Relevance.Model,
		Temperature: cfg.Relevance.SamplingTemperature(),
		MaxTokens:   cfg.Relevance.MaxTokens,
		Timeout:     time.Duration(cfg.Relevance.TimeoutSec) * time.Second,
		Logger:      logger,
	})

	var remote score.Scorer = base
	if store != nil {
		remote = relcache.New(base, store, time.Duration(cfg.Cache.TTLSec)*time.Second,
			metrics.RelevanceCacheTotal, logger)
	}

	return relevance.NewClient(remote, relevance.NewHeuristic(cfg.Fallback.CandidateLimit), relevance.Policy{
		ForceFallback:       cfg.Fallback.Force,
		OnMalformed:         cfg.Fallback.RecoverMalformed(),
		OnUnavailable:       cfg.Fallback.OnUnavailable,
		OnMissingCredential: cfg.Fallback.OnMissingCredential,
	}, logger)
}

func sweepSessions(ctx context.Context, sessions *session.Registry, idle time.Duration) {
	ticker := time.NewTicker(max(idle/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(idle)
		}
	}
}
