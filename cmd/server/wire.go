package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/config"
	"github.com/rezkam/atelier/internal/infrastructure/archive"
	"github.com/rezkam/atelier/internal/infrastructure/persistence/postgres"
	"github.com/rezkam/atelier/internal/infrastructure/redislock"
)

// provideStore opens and migrates the PostgreSQL store.
func provideStore(ctx context.Context, cfg config.DatabaseConfig) (*postgres.Store, error) {
	store, err := postgres.Open(ctx, postgres.DBConfig{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "storage initialized", "dsn", maskPassword(cfg.DSN))
	return store, nil
}

// provideLocker returns a Redis-backed locker, or nil (in-process locking) when Redis is not configured.
// The returned closer is nil when no connection was opened.
func provideLocker(ctx context.Context, cfg config.RedisConfig) (project.Locker, io.Closer, error) {
	if !cfg.Enabled() {
		slog.WarnContext(ctx, "ATELIER_REDIS_ADDR not set, using in-process locks (single instance only)")
		return nil, nil, nil
	}

	client, err := redislock.Dial(ctx, redislock.ClientConfig{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.InfoContext(ctx, "distributed locking enabled", "redis_addr", cfg.Addr)
	return redislock.New(client, redislock.Config{
		Expiry:     cfg.LockExpiry,
		RetryDelay: cfg.LockRetryDelay,
	}), client, nil
}

// provideArchive builds the snapshot archive for the configured backend behind a circuit breaker.
// A nil archive disables exports.
func provideArchive(ctx context.Context, cfg config.ArchiveConfig) (project.Archive, io.Closer, error) {
	var (
		store  project.Archive
		closer io.Closer
	)

	switch cfg.Backend {
	case config.ArchiveNone:
		slog.WarnContext(ctx, "snapshot archive disabled, exports will fail")
		return nil, nil, nil
	case config.ArchiveFS:
		fs, err := archive.NewFSStore(cfg.FSDir)
		if err != nil {
			return nil, nil, err
		}
		store = fs
	case config.ArchiveGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		store = archive.NewGCSStore(client, cfg.GCSBucket, cfg.GCSPrefix)
		closer = client
	default:
		return nil, nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}

	slog.InfoContext(ctx, "snapshot archive initialized", "backend", cfg.Backend)
	return archive.NewBreakerStore(store, archive.BreakerConfig{
		Name:             "snapshot-archive-" + cfg.Backend,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: uint32(cfg.BreakerThreshold),
	}), closer, nil
}
