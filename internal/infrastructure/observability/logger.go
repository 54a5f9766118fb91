package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps debug, info, warn and error to slog levels. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// loggerShutdown flushes the OTel log pipeline and closes the rotated file.
type loggerShutdown struct {
	provider *sdklog.LoggerProvider
	file     io.Closer
}

func (l loggerShutdown) Shutdown(ctx context.Context) error {
	var errs []error
	if l.provider != nil {
		errs = append(errs, l.provider.Shutdown(ctx))
	}
	if l.file != nil {
		errs = append(errs, l.file.Close())
	}
	return errors.Join(errs...)
}

// InitLogger builds the process logger and installs it as the slog default.
//
// Records always go to stdout as JSON. With cfg.LogFile set they are also written to a
// lumberjack-rotated file, and with cfg.Enabled they are bridged to the OTLP log exporter.
func InitLogger(ctx context.Context, cfg Config) (Shutdowner, error) {
	logger, shutdown, err := newLogger(cfg, os.Stdout)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return shutdown, nil
}

func newLogger(cfg Config, stdout io.Writer) (*slog.Logger, loggerShutdown, error) {
	var shutdown loggerShutdown

	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, shutdown, err
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewJSONHandler(stdout, opts)}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		shutdown.file = file
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	if cfg.Enabled {
		exporter, err := otlploggrpc.New(context.Background(), otlploggrpc.WithTimeout(exportTimeout))
		if err != nil {
			return nil, shutdown, fmt.Errorf("failed to create log exporter: %w", err)
		}
		res, err := newResource(context.Background(), cfg.serviceName())
		if err != nil {
			return nil, shutdown, err
		}
		shutdown.provider = sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(5*time.Second))),
			sdklog.WithResource(res),
		)
		handlers = append(handlers, otelslog.NewHandler(cfg.serviceName(), otelslog.WithLoggerProvider(shutdown.provider)))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), shutdown, nil
	}
	return slog.New(fanout(handlers)), shutdown, nil
}

// fanout sends every record to all handlers that accept its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
