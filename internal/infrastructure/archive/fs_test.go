package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atelier/internal/application/project"
)

func TestFSStore_Compliance(t *testing.T) {
	runArchiveCompliance(t, func(t *testing.T) project.Archive {
		store, err := NewFSStore(t.TempDir())
		require.NoError(t, err)
		return store
	})
}

func TestFSStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	snap := sampleSnapshot(uuid.NewString(), time.Now().UTC())
	require.NoError(t, store.SaveSnapshot(context.Background(), snap))

	data, err := os.ReadFile(filepath.Join(dir, snap.ProjectID, snap.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"amount": "1250.5"`)
	assert.Contains(t, string(data), `"due_date": "2026-07-01"`)
	assert.NotContains(t, string(data), `"start_date"`)

	_, err = os.Stat(filepath.Join(dir, snap.ProjectID, snap.ID+".json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFSStore_SkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	snap := sampleSnapshot(uuid.NewString(), time.Now().UTC())
	require.NoError(t, store.SaveSnapshot(context.Background(), snap))
	require.NoError(t, os.WriteFile(filepath.Join(dir, snap.ProjectID, "notes.txt"), []byte("x"), 0o644))

	list, err := store.ListSnapshots(context.Background(), snap.ProjectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
