package worker

import (
	"context"
	"log/slog"
)

// ErrorHandler receives sweep failures and panics for telemetry and alerting.
type ErrorHandler interface {
	HandleError(ctx context.Context, err error)

	// HandlePanic is called with the recovered value and stack trace.
	// The sweep is abandoned; the next tick starts a fresh one.
	HandlePanic(ctx context.Context, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs with structured logging.
type DefaultErrorHandler struct{}

func (h *DefaultErrorHandler) HandleError(ctx context.Context, err error) {
	slog.ErrorContext(ctx, "Overdue sweep failed", slog.String("error", err.Error()))
}

func (h *DefaultErrorHandler) HandlePanic(ctx context.Context, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "Overdue sweep panicked",
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
