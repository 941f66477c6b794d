package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/jobs"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func newTestDepsWithJobs(t *testing.T) dispatch.Deps {
	t.Helper()
	deps := newTestDeps(t)
	deps.Jobs = jobs.NewManager(10)
	return deps
}

func TestAdminBackupThenRestoreRoundTrips(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	addTask(t, deps, map[string]any{"title": "Keep me"})

	backupReq := dispatch.DispatchRequest{Domain: "admin", Operation: "backup", Params: map[string]any{}}
	backupResult, err := adminBackup(context.Background(), backupReq, verify.OperationContext{}, deps)
	require.NoError(t, err)
	backupPath := backupResult.Data.(map[string]any)["path"].(string)
	require.NotEmpty(t, backupPath)

	addTask(t, deps, map[string]any{"title": "Added after backup"})
	tasks, err := deps.Store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	restoreReq := dispatch.DispatchRequest{Domain: "admin", Operation: "restore", Params: map[string]any{"path": backupPath}}
	_, err = adminRestore(context.Background(), restoreReq, verify.OperationContext{}, deps)
	require.NoError(t, err)

	tasks, err = deps.Store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "Keep me", tasks[0].Title)
}

func TestAdminRestoreRequiresPath(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	req := dispatch.DispatchRequest{Domain: "admin", Operation: "restore", Params: map[string]any{}}
	_, err := adminRestore(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}

func TestAdminSyncRunsAsBackgroundJob(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	addTask(t, deps, map[string]any{"title": "Whatever"})

	req := dispatch.DispatchRequest{Domain: "admin", Operation: "sync", Params: map[string]any{}}
	result, err := adminSync(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	jobID := result.Data.(map[string]any)["jobId"].(string)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		job, err := deps.Jobs.Get(jobID)
		require.NoError(t, err)
		if job.Status != jobs.StatusRunning {
			require.Equal(t, jobs.StatusCompleted, job.Status)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("sync job did not complete in time")
}

func TestAdminJobCancelMapsNotFound(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	req := dispatch.DispatchRequest{Domain: "admin", Operation: "job.cancel", Params: map[string]any{"jobId": "nope"}}
	_, err := adminJobCancel(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}

func TestAdminSafestopEndsActiveSessionAndCancelsJobs(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	startSession(t, deps, "epic-1")

	_, err := deps.Jobs.Start(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, nil
	})
	require.NoError(t, err)

	req := dispatch.DispatchRequest{Domain: "admin", Operation: "safestop", Params: map[string]any{}}
	result, err := adminSafestop(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	data := result.Data.(map[string]any)
	require.Equal(t, true, data["sessionEnded"])
	require.Len(t, data["jobsCancelled"].([]string), 1)

	sessions, err := deps.Store.LoadSessions()
	require.NoError(t, err)
	require.Equal(t, "ended", string(sessions[0].Status))
}

func TestAdminInjectGenerateAssemblesPrompt(t *testing.T) {
	deps := newTestDepsWithJobs(t)
	id := addTask(t, deps, map[string]any{"title": "Document the API"})

	req := dispatch.DispatchRequest{Domain: "admin", Operation: "inject.generate", Params: map[string]any{"id": id}}
	result, err := adminInjectGenerate(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	data := result.Data.(map[string]any)
	require.Contains(t, data["prompt"].(string), "Document the API")
}
