package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
)

// Default circuit breaker settings.
const (
	DefaultBreakerTimeout          = 30 * time.Second
	DefaultBreakerMaxRequests      = 1
	DefaultBreakerFailureThreshold = 5
)

// BreakerConfig tunes the circuit breaker. Zero values get the defaults.
type BreakerConfig struct {
	Name string
	// Timeout is how long the breaker stays open before letting a probe through.
	Timeout          time.Duration
	MaxRequests      uint32
	FailureThreshold uint32
}

// BreakerStore guards an archive with a circuit breaker so exports fail fast
// while the backing store is down.
type BreakerStore struct {
	next    project.Archive
	breaker *gobreaker.CircuitBreaker
}

var _ project.Archive = (*BreakerStore)(nil)

// NewBreakerStore wraps next.
func NewBreakerStore(next project.Archive, config BreakerConfig) *BreakerStore {
	if config.Name == "" {
		config.Name = "snapshot-archive"
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultBreakerTimeout
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = DefaultBreakerMaxRequests
	}
	if config.FailureThreshold == 0 {
		config.FailureThreshold = DefaultBreakerFailureThreshold
	}

	return &BreakerStore{
		next: next,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        config.Name,
			MaxRequests: config.MaxRequests,
			Timeout:     config.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= config.FailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
			IsSuccessful: isHealthyOutcome,
		}),
	}
}

// isHealthyOutcome treats caller mistakes as successful calls; only store failures trip the breaker.
func isHealthyOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, domain.ErrSnapshotNotFound) ||
		errors.Is(err, domain.ErrProjectNotFound) ||
		errors.Is(err, ErrSnapshotExists) ||
		errors.Is(err, context.Canceled)
}

// State reports the breaker state, e.g. for health checks.
func (b *BreakerStore) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerStore) SaveSnapshot(ctx context.Context, snapshot *domain.ProjectSnapshot) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.next.SaveSnapshot(ctx, snapshot)
	})
	return err
}

func (b *BreakerStore) GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.GetSnapshot(ctx, projectID, snapshotID)
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.ProjectSnapshot), nil
}

func (b *BreakerStore) ListSnapshots(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error) {
	res, err := b.execute(func() (any, error) {
		return b.next.ListSnapshots(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return res.([]*domain.ProjectSnapshot), nil
}

func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	res, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", domain.ErrArchiveUnavailable, err)
	}
	return res, err
}
