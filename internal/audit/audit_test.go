package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendAndAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo-log.jsonl")
	log := New(path)

	e1 := NewEntry("dispatch.finish", "mutate", "tasks", "add", "cli", "req-1")
	e1.ExitCode = 0
	require.NoError(t, log.Append(e1))

	e2 := NewEntry("dispatch.finish", "mutate", "tasks", "complete", "cli", "req-2")
	e2.ExitCode = 0
	require.NoError(t, log.Append(e2))

	entries, err := log.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "req-1", entries[0].RequestID)
	require.Equal(t, "req-2", entries[1].RequestID)
}

func TestAppendEnforcesNonDecreasingTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo-log.jsonl")
	log := New(path)

	later := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	e1 := NewEntry("a", "query", "tasks", "show", "cli", "req-1")
	e1.TS = later
	require.NoError(t, log.Append(e1))

	e2 := NewEntry("b", "query", "tasks", "show", "cli", "req-2")
	e2.TS = earlier
	require.NoError(t, log.Append(e2))

	entries, err := log.All()
	require.NoError(t, err)
	require.False(t, entries[1].TS.Before(entries[0].TS))
}

func TestAllOnMissingFileReturnsEmpty(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	entries, err := log.All()
	require.NoError(t, err)
	require.Empty(t, entries)
}
