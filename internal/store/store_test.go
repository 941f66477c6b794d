package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/paths"
)

func osReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	layout, err := paths.NewLayout(t.TempDir())
	require.NoError(t, err)
	s, err := Open(layout, DefaultLockOptions())
	require.NoError(t, err)
	return s
}

func TestSaveAndLoadTasksRoundTrip(t *testing.T) {
	s := newTestStore(t)
	tasks := []model.Task{
		{ID: "T1", Title: "Design API", Description: "Write the initial REST API specification", Status: model.StatusPending, Priority: model.PriorityHigh, Type: model.TypeTask, Created: time.Now().UTC(), Updated: time.Now().UTC()},
	}
	require.NoError(t, s.SaveTasks(tasks))

	got, err := s.LoadTasks()
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "T1", got[0].ID)
	require.Equal(t, "Design API", got[0].Title)
}

func TestLoadTasksMissingFileReturnsEmpty(t *testing.T) {
	s := newTestStore(t)
	got, err := s.LoadTasks()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestArchiveAcceptsLegacyTasksKey(t *testing.T) {
	s := newTestStore(t)
	path := s.Layout().ArchiveFile()
	legacy := `{"_meta":{"schemaVersion":1},"tasks":[{"id":"T1","title":"x","_archive":{"archivedAt":"2026-01-01T00:00:00Z"}}]}`
	require.NoError(t, atomicWrite(path, []byte(legacy)))

	entries, err := s.LoadArchive()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "T1", entries[0].ID)
}

func TestSaveArchiveAlwaysWritesArchivedTasksKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveArchive([]model.ArchiveEntry{{Task: model.Task{ID: "T1"}}}))

	raw, err := osReadFile(s.Layout().ArchiveFile())
	require.NoError(t, err)
	require.Contains(t, raw, `"archivedTasks"`)
}

func TestAtomicWriteThenSafeReadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")

	type payload struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	want := payload{A: 7, B: "hello"}
	require.NoError(t, atomicWriteJSON(path, want))

	var got payload
	ok, err := safeReadJSON(path, &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestWithLockSerializesAccessAndReleases(t *testing.T) {
	s := newTestStore(t)
	file := s.Layout().TasksFile()

	var order []int
	err := s.WithLock(file, func() error {
		order = append(order, 1)
		return nil
	})
	require.NoError(t, err)

	// Lock must be released: a second acquisition must succeed immediately.
	err = s.WithLock(file, func() error {
		order = append(order, 2)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, order)
}

func TestWithLockTimesOutWhenHeld(t *testing.T) {
	s := newTestStore(t)
	file := s.Layout().TasksFile()

	lock, err := acquireLock(s.Layout().LockDir(file), s.lockOp)
	require.NoError(t, err)
	defer lock.release()

	fast := DefaultLockOptions()
	fast.MaxRetries = 1
	fast.InitialDelay = time.Millisecond
	fast.MaxDelay = 2 * time.Millisecond
	fast.StalenessTimeout = time.Hour
	s2 := &Store{layout: s.layout, lockOp: fast}

	err = s2.WithLock(file, func() error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestBackupNowCopiesExistingFiles(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveTasks([]model.Task{{ID: "T1"}}))

	dir, err := s.BackupNow(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "todo.json"))
}
