package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/idem-lexis/lexis-api/config"
	"github.com/idem-lexis/lexis-api/internal/auth"
	"github.com/idem-lexis/lexis-api/internal/bootstrap"
	"github.com/idem-lexis/lexis-api/internal/deployments/pricing"
	"github.com/idem-lexis/lexis-api/internal/github"
	"github.com/idem-lexis/lexis-api/internal/llm"
	"github.com/idem-lexis/lexis-api/internal/logging"
	"github.com/idem-lexis/lexis-api/internal/quota"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.Init(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.SetGinMode(cfg.App.Environment)

	var app *firebase.App
	if cfg.App.AuthMode == "firebase" || cfg.Storage.Driver == "firestore" {
		var err error
		if app, err = auth.InitializeFirebase(ctx, &cfg.Firebase); err != nil {
			return err
		}
	}

	deps := bootstrap.RouterDeps{Config: cfg}
	if cfg.App.AuthMode == "firebase" {
		client, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("firebase auth client: %w", err)
		}
		deps.Verifier = client
	}

	backend, err := bootstrap.OpenStorage(ctx, cfg.Storage.Driver, cfg, app)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	defer backend.Close()
	deps.Storage = backend
	logger.Info("storage ready", zap.String("driver", backend.Name()))

	if err := bootstrap.SeedArchetypes(ctx, backend, cfg.App.ArchetypesSeedPath); err != nil {
		return fmt.Errorf("seed archetypes: %w", err)
	}

	if deps.LLM, err = llm.NewFromConfig(ctx, cfg.LLM); err != nil {
		return err
	}
	logger.Info("llm ready", zap.String("provider", deps.LLM.ProviderName()))

	if cfg.GitHub.Token != "" {
		deps.GitHub = github.NewClient(ctx, cfg.GitHub.Token, cfg.GitHub.APIURL, cfg.GitHub.Default)
	} else {
		logger.Warn("GITHUB_TOKEN not set, github push disabled")
	}

	if pricer, err := pricing.NewAWSPricer(ctx, cfg.AWS.PricingRegion); err != nil {
		logger.Warn("aws pricing disabled", zap.Error(err))
	} else {
		deps.Pricer = pricer
	}

	var scheduler *quota.Scheduler
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		deps.Redis = rdb

		scheduler = quota.NewScheduler(quota.NewStore(rdb, cfg.Quota.DailyLimit, cfg.Quota.WeeklyLimit))
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("quota scheduler: %w", err)
		}
		defer scheduler.Stop()
	} else {
		logger.Warn("REDIS_ADDR not set, quotas disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           bootstrap.BuildRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
