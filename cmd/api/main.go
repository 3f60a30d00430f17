package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/splax/cybervault/internal/app/migrate"
	httpx "github.com/splax/cybervault/internal/http"
	"github.com/splax/cybervault/internal/notary"
	"github.com/splax/cybervault/internal/repository"
	"github.com/splax/cybervault/internal/repository/memory"
	"github.com/splax/cybervault/internal/repository/postgres"
	"github.com/splax/cybervault/internal/service/auth"
	"github.com/splax/cybervault/internal/service/dashboard"
	"github.com/splax/cybervault/internal/service/identity"
	"github.com/splax/cybervault/internal/service/notarization"
	"github.com/splax/cybervault/internal/service/operation"
	"github.com/splax/cybervault/internal/ws"
	"github.com/splax/cybervault/pkg/config"
	"github.com/splax/cybervault/pkg/logger"
)

func main() {
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel)).With("env", cfg.Environment)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	runner, closeRunner, err := notaryRunner(cfg)
	if err != nil {
		log.Error("failed to configure notary runner", "runner", cfg.NotaryRunner, "error", err)
		os.Exit(1)
	}
	defer closeRunner()
	notaryCfg, err := notary.ParseConfig(cfg.NotaryCommand, cfg.NotaryProbeCommand, cfg.NotaryWorkdir, cfg.NotaryTimeout)
	if err != nil {
		log.Error("invalid notary configuration", "error", err)
		os.Exit(1)
	}
	chain := notary.New(runner, notaryCfg, log)

	hub := ws.NewHub(log)
	defer hub.Close()

	ops := operation.New(store, log)
	identitySvc := identity.New(store, chain, ops, hub, log)
	notarizationSvc := notarization.New(store, chain, ops, hub, log)
	dashboardSvc := dashboard.New(store, chain, log)
	authSvc := auth.New(store, log, cfg)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(httpx.Deps{
		Logger:       log,
		Identity:     identitySvc,
		Notarization: notarizationSvc,
		Dashboard:    dashboardSvc,
		Operations:   ops,
		Auth:         authSvc,
		Hub:          hub,
		Limiter:      limiter,
		RateLimit:    cfg.RateLimitPerMinute,
		AuthRequired: cfg.AuthRequired,
		StoreHealth:  store.Ping,
		Heartbeat:    cfg.EventHeartbeat,
	})
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "store", cfg.StoreBackend, "runner", cfg.NotaryRunner, "auth_required", cfg.AuthRequired)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreMemory, "":
		log.Warn("using in-memory store; records are lost on restart")
		return memory.New(), nil
	case config.StorePostgres:
		runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			return nil, fmt.Errorf("configure migrations: %w", err)
		}
		defer runner.Close()
		if err := runner.Ping(ctx); err != nil {
			return nil, fmt.Errorf("database ping: %w", err)
		}
		if err := runner.Up(ctx); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		repo, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func notaryRunner(cfg config.APIConfig) (notary.Runner, func(), error) {
	switch cfg.NotaryRunner {
	case config.RunnerExec, "":
		return notary.ExecRunner{}, func() {}, nil
	case config.RunnerDocker:
		runner, err := notary.NewDockerRunner(cfg.DockerHost, cfg.NotaryContainer)
		if err != nil {
			return nil, nil, err
		}
		return runner, func() { _ = runner.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown notary runner %q", cfg.NotaryRunner)
	}
}
