package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finestate/hub-backend/internal/entity"
)

func TestSaveCreatesDirectoryAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public", "uploads")
	store := NewLocalStore(dir, "/uploads")

	path, err := store.Save(context.Background(), "lease.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lease.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	// idempotent directory creation, last writer wins
	_, err = store.Save(context.Background(), "lease.pdf", []byte("second"))
	require.NoError(t, err)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "second", string(data))
}

func TestSaveRejectsUnsafeNames(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/uploads")

	for _, name := range []string{"", ".", "..", "../x.pdf", "a/b.pdf"} {
		_, err := store.Save(context.Background(), name, []byte("x"))
		assert.ErrorIs(t, err, entity.ErrInvalidFilename, name)
	}
}

func TestSaveFailsWhenDirIsAFile(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "uploads")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewLocalStore(blocker, "/uploads").Save(context.Background(), "a.pdf", []byte("x"))
	assert.ErrorIs(t, err, entity.ErrStorage)
}

func TestListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads")

	_, err := store.Save(context.Background(), "old.pdf", []byte("1"))
	require.NoError(t, err)
	_, err = store.Save(context.Background(), "new report.pdf", []byte("22"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), past, past))

	uploads, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, "new report.pdf", uploads[0].Name)
	assert.Equal(t, "/uploads/new%20report.pdf", uploads[0].Path)
	assert.Equal(t, int64(2), uploads[0].Size)
	assert.Equal(t, "old.pdf", uploads[1].Name)
}

func TestListMissingDirIsEmpty(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"), "/uploads")

	uploads, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/uploads")

	_, err := store.Save(context.Background(), "index.html", []byte("<h1>x</h1>"))
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	f, err := store.Open(context.Background(), "index.html")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "<h1>x</h1>", string(data))

	for _, name := range []string{"missing.pdf", "nested", "..", "../index.html", ""} {
		_, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, entity.ErrUploadNotFound, name)
	}
}
