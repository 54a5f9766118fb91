package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atelier/internal/application/project"
	"github.com/rezkam/atelier/internal/domain"
)

// flakyArchive fails every call while down is set.
type flakyArchive struct {
	project.Archive
	down  bool
	calls int
}

var errBackendDown = errors.New("backend down")

func (f *flakyArchive) SaveSnapshot(ctx context.Context, s *domain.ProjectSnapshot) error {
	f.calls++
	if f.down {
		return errBackendDown
	}
	return f.Archive.SaveSnapshot(ctx, s)
}

func (f *flakyArchive) GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	f.calls++
	if f.down {
		return nil, errBackendDown
	}
	return f.Archive.GetSnapshot(ctx, projectID, snapshotID)
}

func newFlaky(t *testing.T) *flakyArchive {
	t.Helper()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return &flakyArchive{Archive: fs}
}

func TestBreakerStore_Compliance(t *testing.T) {
	runArchiveCompliance(t, func(t *testing.T) project.Archive {
		return NewBreakerStore(newFlaky(t), BreakerConfig{})
	})
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	backend := newFlaky(t)
	backend.down = true
	store := NewBreakerStore(backend, BreakerConfig{FailureThreshold: 3, Timeout: time.Hour})
	snap := sampleSnapshot(uuid.NewString(), time.Now().UTC())

	for range 3 {
		err := store.SaveSnapshot(context.Background(), snap)
		require.ErrorIs(t, err, errBackendDown)
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	err := store.SaveSnapshot(context.Background(), snap)
	assert.ErrorIs(t, err, domain.ErrArchiveUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, backend.calls, "open breaker does not reach the backend")
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	backend := newFlaky(t)
	store := NewBreakerStore(backend, BreakerConfig{FailureThreshold: 1})

	for range 5 {
		_, err := store.GetSnapshot(context.Background(), uuid.NewString(), uuid.NewString())
		require.ErrorIs(t, err, domain.ErrSnapshotNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestBreakerStore_HalfOpenRecovers(t *testing.T) {
	backend := newFlaky(t)
	backend.down = true
	store := NewBreakerStore(backend, BreakerConfig{FailureThreshold: 1, Timeout: 20 * time.Millisecond})
	snap := sampleSnapshot(uuid.NewString(), time.Now().UTC())

	require.ErrorIs(t, store.SaveSnapshot(context.Background(), snap), errBackendDown)
	require.Equal(t, gobreaker.StateOpen, store.State())

	backend.down = false
	time.Sleep(40 * time.Millisecond)

	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	assert.Equal(t, gobreaker.StateClosed, store.State())
}

func TestIsHealthyOutcome(t *testing.T) {
	assert.True(t, isHealthyOutcome(nil))
	assert.True(t, isHealthyOutcome(fmt.Errorf("wrapped: %w", domain.ErrSnapshotNotFound)))
	assert.True(t, isHealthyOutcome(ErrSnapshotExists))
	assert.False(t, isHealthyOutcome(errBackendDown))
}
