// Package worker runs the periodic overdue sweep.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
)

// SweepLockKey is the lock that keeps concurrent worker instances from sweeping at the same time.
const SweepLockKey = "sweep:overdue"

// Sweeper promotes overdue tasks and transactions. *project.Service implements it.
type Sweeper interface {
	SweepOverdue(ctx context.Context, today domain.Date) (project.SweepResult, error)
}

// Worker runs the overdue sweep on a ticker.
type Worker struct {
	sweeper          Sweeper
	locker           project.Locker
	clock            project.Clock
	location         *time.Location
	interval         time.Duration
	operationTimeout time.Duration
	lockWait         time.Duration
	errorHandler     ErrorHandler
	wg               sync.WaitGroup
}

// Option is a functional option for configuring Worker.
type Option func(*Worker)

// WithInterval sets how often the sweep runs.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.interval = d
	}
}

// WithOperationTimeout bounds a single sweep.
func WithOperationTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.operationTimeout = d
	}
}

// WithLocker makes instances sharing the locker take turns. Without it every instance sweeps.
func WithLocker(l project.Locker) Option {
	return func(w *Worker) {
		w.locker = l
	}
}

// WithClock overrides the clock used to compute today.
func WithClock(c project.Clock) Option {
	return func(w *Worker) {
		w.clock = c
	}
}

// WithLocation sets the time zone whose calendar day counts as today.
func WithLocation(loc *time.Location) Option {
	return func(w *Worker) {
		if loc != nil {
			w.location = loc
		}
	}
}

// WithErrorHandler replaces the default logging error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Worker) {
		w.errorHandler = h
	}
}

// New creates a Worker with the given sweeper and options.
func New(sweeper Sweeper, opts ...Option) *Worker {
	w := &Worker{
		sweeper:          sweeper,
		clock:            project.SystemClock{},
		location:         time.UTC,
		interval:         time.Hour,
		operationTimeout: 5 * time.Minute,
		lockWait:         time.Second,
		errorHandler:     &DefaultErrorHandler{},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start sweeps once immediately and then on every tick until ctx is cancelled.
// On shutdown it waits for an in-flight sweep to finish and returns nil.
func (w *Worker) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "Overdue sweeper started", "interval", w.interval)

	w.runGuarded()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.wg.Go(w.runGuarded)
		case <-ctx.Done():
			slog.InfoContext(ctx, "Shutdown requested, waiting for in-flight sweep...")
			w.wg.Wait()
			slog.InfoContext(ctx, "Overdue sweeper stopped gracefully")
			return nil
		}
	}
}

// runGuarded runs one sweep detached from the caller's context so shutdown does not abort it midway.
func (w *Worker) runGuarded() {
	ctx, cancel := context.WithTimeout(context.Background(), w.operationTimeout)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		w.errorHandler.HandleError(ctx, err)
	}
}

// RunOnce executes a single sweep. It returns a zero result without error when another
// instance holds the sweep lock.
func (w *Worker) RunOnce(ctx context.Context) (result project.SweepResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			w.errorHandler.HandlePanic(ctx, r, stack)
			err = PanicError{Value: r, StackTrace: stack}
		}
	}()

	if w.locker != nil {
		lockCtx, cancel := context.WithTimeout(ctx, w.lockWait)
		release, lockErr := w.locker.Acquire(lockCtx, SweepLockKey)
		cancel()
		if lockErr != nil {
			slog.InfoContext(ctx, "Sweep lock held elsewhere, skipping", "error", lockErr)
			return result, nil
		}
		defer release()
	}

	today := domain.DateOf(w.clock.Now().In(w.location))
	result, err = w.sweeper.SweepOverdue(ctx, today)
	if err != nil {
		return result, fmt.Errorf("overdue sweep for %s: %w", today, err)
	}

	slog.InfoContext(ctx, "Overdue sweep completed",
		"today", today.String(), "tasks", result.Tasks, "transactions", result.Transactions)
	return result, nil
}
