package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/cache"
	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/core"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
	"expenses/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(log.New(log.DefaultConfig()), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp, nil)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	be, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	summaries := cache.NewLRUCache[core.Summary](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	caches := cache.NewManager(summaries)
	caches.StartCleanup(ctx, time.Minute)
	defer caches.Stop()

	svc := services.New(be.Store, be.Events, summaries)

	if cfg.SeedDefaultCategories {
		inserted, err := svc.Categories.SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("seed default categories: %w", err)
		}
		logger.Info("Default categories seeded", log.FieldOperation, log.OpSeed, log.FieldCount, inserted)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              be.Store,
	}, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expenses server",
			log.FieldOperation, log.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", be.Events != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
