package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/rezkam/atelier/internal/domain"
)

// maxConcurrentReads bounds parallel object downloads in ListSnapshots.
const maxConcurrentReads = 20

// GCSStore keeps snapshots as objects named <prefix><project_id>/<snapshot_id>.json.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore creates a store over an existing client.
// The client is expected to be authenticated (e.g. via GOOGLE_APPLICATION_CREDENTIALS).
func NewGCSStore(client *storage.Client, bucket, prefix string) *GCSStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) objectName(projectID, snapshotID string) string {
	return s.prefix + projectID + "/" + snapshotID + ".json"
}

// SaveSnapshot uploads the snapshot. The write is conditional on the object not existing.
func (s *GCSStore) SaveSnapshot(ctx context.Context, snapshot *domain.ProjectSnapshot) error {
	if err := validateIDs(snapshot.ProjectID, snapshot.ID); err != nil {
		return err
	}
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	obj := s.client.Bucket(s.bucket).
		Object(s.objectName(snapshot.ProjectID, snapshot.ID)).
		If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: %s", ErrSnapshotExists, snapshot.ID)
		}
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// GetSnapshot downloads one snapshot.
func (s *GCSStore) GetSnapshot(ctx context.Context, projectID, snapshotID string) (*domain.ProjectSnapshot, error) {
	if err := validateIDs(projectID, snapshotID); err != nil {
		return nil, err
	}
	data, err := s.read(ctx, s.objectName(projectID, snapshotID))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, snapshotID)
	}
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// ListSnapshots lists the project's objects and downloads them in parallel, newest first.
func (s *GCSStore) ListSnapshots(ctx context.Context, projectID string) ([]*domain.ProjectSnapshot, error) {
	if _, err := uuid.Parse(projectID); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProjectNotFound, domain.ErrInvalidID)
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + projectID + "/"})
	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		firstErr  error
		snapshots = make([]*domain.ProjectSnapshot, 0, len(names))
		semaphore = make(chan struct{}, maxConcurrentReads)
	)
	for _, name := range names {
		semaphore <- struct{}{}
		wg.Go(func() {
			defer func() { <-semaphore }()

			data, err := s.read(ctx, name)
			var snap *domain.ProjectSnapshot
			if err == nil {
				snap, err = decodeSnapshot(data)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", name, err)
				}
				return
			}
			snapshots = append(snapshots, snap)
		})
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	sortNewestFirst(snapshots)
	return snapshots, nil
}

func (s *GCSStore) read(ctx context.Context, name string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}
