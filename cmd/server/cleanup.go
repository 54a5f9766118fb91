package main

import (
	"context"
	"io"
	"log/slog"
)

// shutdowner abstracts the authenticator so tests can verify cleanup behavior
// without constructing real infrastructure dependencies.
type shutdowner interface {
	Shutdown(context.Context) error
}

// newCleanup returns the shutdown hook: drain authenticator state first, then close
// each resource in the order given. Nil closers are skipped.
func newCleanup(ctx context.Context, authenticator shutdowner, closers ...io.Closer) func() {
	return func() {
		if authenticator != nil {
			if err := authenticator.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to shut down authenticator", "error", err)
			}
		}

		for _, c := range closers {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				slog.ErrorContext(ctx, "failed to close resource", "error", err)
			}
		}
	}
}
