package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitTerminal(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := m.Get(id)
		require.NoError(t, err)
		if job.Status != StatusRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return Job{}
}

func TestStartRunsWorkToCompletion(t *testing.T) {
	m := NewManager(10)
	id, err := m.Start(func(ctx context.Context) (any, error) {
		return "done", nil
	})
	require.NoError(t, err)

	job := waitTerminal(t, m, id)
	require.Equal(t, StatusCompleted, job.Status)
	require.Equal(t, "done", job.Result)
	require.Equal(t, 100, job.Progress)
}

func TestStartRecordsWorkFailure(t *testing.T) {
	m := NewManager(10)
	id, err := m.Start(func(ctx context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.NoError(t, err)

	job := waitTerminal(t, m, id)
	require.Equal(t, StatusFailed, job.Status)
	require.Equal(t, "boom", job.Error)
}

func TestStartRejectsPastCapacity(t *testing.T) {
	m := NewManager(1)
	block := make(chan struct{})
	_, err := m.Start(func(ctx context.Context) (any, error) {
		<-block
		return nil, nil
	})
	require.NoError(t, err)

	_, err = m.Start(func(ctx context.Context) (any, error) { return nil, nil })
	require.ErrorIs(t, err, ErrAtCapacity)

	close(block)
}

func TestCancelDiscardsLateResult(t *testing.T) {
	m := NewManager(10)
	started := make(chan struct{})
	id, err := m.Start(func(ctx context.Context) (any, error) {
		close(started)
		<-ctx.Done()
		return "late", nil
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, m.Cancel(id))

	job, err := m.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, job.Status)

	time.Sleep(20 * time.Millisecond)
	job, err = m.Get(id)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, job.Status)
	require.Nil(t, job.Result)
}

func TestCancelUnknownJobReturnsNotFound(t *testing.T) {
	m := NewManager(10)
	err := m.Cancel("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknownJobReturnsNotFound(t *testing.T) {
	m := NewManager(10)
	_, err := m.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}
