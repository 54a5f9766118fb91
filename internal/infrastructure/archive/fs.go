package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rezkam/atelier/internal/domain"
)

// ErrSnapshotExists is returned when a snapshot id is saved twice. Snapshots are immutable.
var ErrSnapshotExists = errors.New("snapshot already exists")

// FSStore keeps snapshots as <baseDir>/<project_id>/<snapshot_id>.json.
type FSStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FSStore{baseDir: baseDir}, nil
}

func (s *FSStore) snapshotPath(projectID, snapshotID string) string {
	return filepath.Join(s.baseDir, projectID, snapshotID+".json")
}

// SaveSnapshot writes the snapshot through a temporary file so readers never see a partial document.
func (s *FSStore) SaveSnapshot(ctx context.Context, snapshot *domain.ProjectSnapshot) error {
	if err := validateIDs(snapshot.ProjectID, snapshot.ID); err != nil {
		return err
	}
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.snapshotPath(snapshot.ProjectID, snapshot.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, snapshot.ID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to commit file: %w", err)
	}
	return nil
}

// GetSnapshot reads one snapshot. A missing file maps to domain.ErrSnapshotNotFound.
func (s *FSStore) GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	if err := validateIDs(projectID, snapshotID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.snapshotPath(projectID, snapshotID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, snapshotID)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return decodeSnapshot(data)
}

// ListSnapshots loads every snapshot of the project, newest first.
// A project without exports yields an empty slice.
func (s *FSStore) ListSnapshots(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProjectNotFound, domain.ErrInvalidID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(s.baseDir, projectID))
	if errors.Is(err, os.ErrNotExist) {
		return []*domain.ProjectSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	snapshots := make([]*domain.ProjectSnapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, projectID, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		snapshots = append(snapshots, snap)
	}
	sortNewestFirst(snapshots)
	return snapshots, nil
}

// validateIDs keeps ids from escaping their directory or object prefix.
func validateIDs(projectID, snapshotID string) error {
	if _, err := uuid.Parse(projectID); err != nil {
		return fmt.Errorf("%w: project %q: %w", domain.ErrSnapshotNotFound, projectID, domain.ErrInvalidID)
	}
	if _, err := uuid.Parse(snapshotID); err != nil {
		return fmt.Errorf("%w: %q: %w", domain.ErrSnapshotNotFound, snapshotID, domain.ErrInvalidID)
	}
	return nil
}

func sortNewestFirst(snapshots []*domain.ProjectSnapshot) {
	slices.SortFunc(snapshots, func(a, b *domain.ProjectSnapshot) int {
		if c := b.TakenAt.Compare(a.TakenAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
}
