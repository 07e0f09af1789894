package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveStream(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("exports/bookings.csv", strings.NewReader("id,date\nbk-1,2026-09-07\n"))
	require.NoError(t, err)
	require.Equal(t, "exports/bookings.csv", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "id,date\nbk-1,2026-09-07\n", string(data))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.Save("old.pdf", []byte("stale"))
	require.NoError(t, err)
	_, err = store.Save("fresh.pdf", []byte("recent"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.pdf"), stale, stale))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.pdf"}, removed)

	_, err = os.Stat(filepath.Join(dir, "old.pdf"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "fresh.pdf"))
	require.NoError(t, err)
}
