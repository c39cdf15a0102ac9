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

	"go.uber.org/zap"

	"github.com/calder-ai/relay/internal/cli"
	"github.com/calder-ai/relay/internal/config"
	"github.com/calder-ai/relay/internal/core/domain"
	"github.com/calder-ai/relay/internal/core/services"
	"github.com/calder-ai/relay/internal/logger"
	"github.com/calder-ai/relay/internal/modelcache"
	"github.com/calder-ai/relay/internal/platform/otel"
	"github.com/calder-ai/relay/internal/provider"
	"github.com/calder-ai/relay/internal/provider/ollama"
	"github.com/calder-ai/relay/internal/server"
	"github.com/calder-ai/relay/internal/server/validator"
	"github.com/calder-ai/relay/internal/store"
	cachestore "github.com/calder-ai/relay/internal/store/cache"
	memorycache "github.com/calder-ai/relay/internal/store/cache/memory"
	rediscache "github.com/calder-ai/relay/internal/store/cache/redis"
	"github.com/calder-ai/relay/internal/store/sqlite"

	// Import providers to trigger init() registration
	_ "github.com/calder-ai/relay/internal/provider/apple"
	_ "github.com/calder-ai/relay/internal/provider/openai"
	_ "github.com/calder-ai/relay/internal/provider/openrouter"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log := logger.Get()
	defer logger.Sync()

	validator.InitValidator()

	credStore := config.NewCredentials(cfg)

	// Discovery cache: redis when configured, otherwise in-process.
	var listCache cachestore.CacheService
	if cfg.Redis.Enabled {
		rc, err := rediscache.New(rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn("redis unreachable, using in-memory discovery cache", zap.Error(err))
			listCache = memorycache.New()
		} else {
			listCache = rc
		}
	} else {
		listCache = memorycache.New()
	}

	adapters := provider.Build(credStore)
	// The ollama adapter takes the discovery cache on top of credentials, so
	// it is constructed here instead of through init registration.
	adapters[domain.ProviderOllama] = ollama.NewAdapter(credStore, listCache)

	handleCache := modelcache.New(modelcache.Config{
		MaxEntries:    cfg.Cache.MaxHandles,
		TTL:           cfg.Cache.HandleTTL,
		SweepInterval: cfg.Cache.SweepInterval,
	})
	defer handleCache.Close()

	var repo store.Repository
	if cfg.Store.Path != "" {
		repo, err = sqlite.NewSQLiteStorage(cfg.Store.Path)
		if err != nil {
			log.Fatal("failed to open attempt store", zap.String("path", cfg.Store.Path), zap.Error(err))
		}
		defer repo.Close()
	} else {
		log.Warn("attempt history disabled, no store path configured")
	}

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("relay", cfg.Server.Env, log, os.Stdout)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	factory := services.NewFactory(adapters, credStore, handleCache, log)
	chain := services.NewChain(factory, credStore, repo, log)

	printProviderSummary(factory)

	srv := server.New(cfg, log, factory, chain, credStore, repo)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Server.Env))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func printProviderSummary(factory *services.Factory) {
	fmt.Println(cli.Style("relay providers", cli.Bold))
	for _, id := range domain.FallbackOrder {
		mark := cli.CrossMark()
		note := cli.Style("not configured", cli.Dim)
		if factory.IsProviderAvailable(id) {
			mark = cli.CheckMark()
			note = cli.Style("ready", cli.Green)
		}
		fmt.Printf("  %s %-12s %s\n", mark, id, note)
	}
}
