package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezkam/atelier/internal/application/auth"
	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/config"
	httpserver "github.com/rezkam/atelier/internal/infrastructure/http"
	"github.com/rezkam/atelier/internal/infrastructure/http/handler"
	"github.com/rezkam/atelier/internal/infrastructure/observability"
)

func main() {
	if err := run(); err != nil {
		// slog may not be initialized if config fails
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}

	// Root context for normal operations; cancelled on SIGTERM/SIGINT.
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
		// Bounded so an unreachable collector cannot hang exit.
		shutdownCtx, cancel := newShutdownContext(5 * time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush telemetry: %v\n", err)
		}
	}()

	slog.InfoContext(ctx, "starting atelier server", "timezone", cfg.Workflow.Timezone, "archive", cfg.Archive.Backend)

	store, err := provideStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	locker, redisCloser, err := provideLocker(ctx, cfg.Redis)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to create locker: %w", err)
	}

	archiveStore, archiveCloser, err := provideArchive(ctx, cfg.Archive)
	if err != nil {
		newCleanup(ctx, nil, redisCloser, store)()
		return fmt.Errorf("failed to create archive: %w", err)
	}

	svc := project.NewService(store, locker, archiveStore, project.SystemClock{}, project.Config{
		LockTimeout: cfg.Workflow.LockTimeout,
		Location:    cfg.Workflow.Location(),
	})

	authenticator := auth.NewAuthenticator(store, auth.Config{
		OperationTimeout: cfg.Auth.OperationTimeout,
		UpdateQueueSize:  cfg.Auth.UpdateQueueSize,
	})
	slog.InfoContext(ctx, "API key authentication enabled")

	server := httpserver.NewAPIServer(handler.New(svc).Routes(), authenticator, httpserver.ServerConfig{
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		ServiceName:       cfg.Observability.ServiceName,
	})

	errResult := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
	case runErr = <-errResult:
	}

	// Main ctx is already cancelled here, so shutdown gets a fresh deadline.
	shutdownCtx, cancelShutdown := newShutdownContext(cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "HTTP server shutdown failed", "error", err)
	}

	// Drain pending last_used_at updates before the pool goes away.
	newCleanup(shutdownCtx, authenticator, archiveCloser, redisCloser, store)()
	slog.InfoContext(shutdownCtx, "shutdown complete")

	return runErr
}

// newShutdownContext creates a fresh context with timeout for graceful shutdown operations.
func newShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// maskPassword masks the password in a connection string for logging.
func maskPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil {
		// If parsing fails, fall back to full redaction to be safe
		return "[REDACTED]"
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxxx")
		}
	}
	return u.String()
}
