package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/application/worker"
	"github.com/rezkam/atelier/internal/config"
	"github.com/rezkam/atelier/internal/infrastructure/observability"
	"github.com/rezkam/atelier/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/atelier/internal/infrastructure/redislock"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	providers, err := observability.Init(ctx, observability.Config{
		Enabled:       cfg.Observability.OTelEnabled,
		ServiceName:   cfg.Observability.ServiceName,
		LogLevel:      cfg.Observability.LogLevel,
		LogFile:       cfg.Observability.LogFile,
		LogMaxSizeMB:  cfg.Observability.LogMaxSizeMB,
		LogMaxBackups: cfg.Observability.LogMaxBackups,
		LogMaxAgeDays: cfg.Observability.LogMaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush telemetry: %v\n", err)
		}
	}()

	store, err := postgres.Open(ctx, postgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	opts := []worker.Option{
		worker.WithInterval(cfg.Interval),
		worker.WithLocation(cfg.Workflow.Location()),
	}
	if cfg.OperationTimeout > 0 {
		opts = append(opts, worker.WithOperationTimeout(cfg.OperationTimeout))
	}

	// Sweeps and API writes share the Redis locks, so a promotion never races a status request.
	var locker project.Locker
	if cfg.Redis.Enabled() {
		client, err := redislock.Dial(ctx, redislock.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		locker = redislock.New(client, redislock.Config{
			Expiry:     cfg.Redis.LockExpiry,
			RetryDelay: cfg.Redis.LockRetryDelay,
		})
		opts = append(opts, worker.WithLocker(locker))
	} else {
		slog.WarnContext(ctx, "ATELIER_REDIS_ADDR not set, running without the sweep lock")
	}

	// The worker never exports, so it has no archive.
	svc := project.NewService(store, locker, nil, project.SystemClock{}, project.Config{
		LockTimeout: cfg.Workflow.LockTimeout,
		Location:    cfg.Workflow.Location(),
	})

	w := worker.New(svc, opts...)

	slog.InfoContext(ctx, "starting overdue worker",
		"interval", cfg.Interval,
		"timezone", cfg.Workflow.Timezone)

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}

	slog.Info("worker shut down gracefully")
	return nil
}
