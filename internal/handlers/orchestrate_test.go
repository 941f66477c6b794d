package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/orchestrator"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func startSession(t *testing.T, deps dispatch.Deps, scope string) model.Session {
	t.Helper()
	sessions, err := deps.Store.LoadSessions()
	require.NoError(t, err)
	s := model.Session{ID: "sess-1", Scope: scope, Status: model.SessionActive, StartedAt: time.Now().UTC()}
	sessions = append(sessions, s)
	require.NoError(t, deps.Store.SaveSessions(sessions))
	return s
}

func TestOrchestrateStartPreviewsSkillWithoutSpawning(t *testing.T) {
	deps := newTestDeps(t)
	id := addTask(t, deps, map[string]any{"title": "Investigate login failures", "type": "task"})

	req := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "start", Params: map[string]any{"id": id}}
	result, err := orchestrateStart(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	data := result.Data.(map[string]any)
	require.Equal(t, id, data["taskId"])
	require.NotEmpty(t, data["skill"])
}

func TestOrchestrateStartRejectsUnknownTask(t *testing.T) {
	deps := newTestDeps(t)
	req := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "start", Params: map[string]any{"id": "T999"}}
	_, err := orchestrateStart(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}

func TestOrchestrateValidateAssemblesPromptAndReportsTokens(t *testing.T) {
	deps := newTestDeps(t)
	id := addTask(t, deps, map[string]any{"title": "Ship the release notes"})

	req := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "validate", Params: map[string]any{
		"id": id, "template": "Task: {{task.title}} / {{unknown.token}}",
	}}
	result, err := orchestrateValidate(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	data := result.Data.(map[string]any)
	require.Contains(t, data["prompt"].(string), "Ship the release notes")
	tr := data["tokenResolution"].(orchestrator.TokenResolution)
	require.False(t, tr.FullyResolved)
	require.Contains(t, tr.UnresolvedTokens, "unknown.token")
}

func TestOrchestrateParallelStartRequiresActiveSession(t *testing.T) {
	deps := newTestDeps(t)
	req := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "parallel.start", Params: map[string]any{"ids": []any{"T1", "T2"}}}
	_, err := orchestrateParallelStart(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}

func TestOrchestrateParallelStartAndEndRoundTrip(t *testing.T) {
	deps := newTestDeps(t)
	startSession(t, deps, "epic-1")

	req := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "parallel.start", Params: map[string]any{"ids": []any{"T1", "T2"}}}
	result, err := orchestrateParallelStart(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	data := result.Data.(map[string]any)
	require.Equal(t, []string{"T1", "T2"}, data["parallelTaskIds"])

	endReq := dispatch.DispatchRequest{Domain: "orchestrate", Operation: "parallel.end", Params: map[string]any{}}
	endResult, err := orchestrateParallelEnd(context.Background(), endReq, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.False(t, endResult.Partial)

	endResult, err = orchestrateParallelEnd(context.Background(), endReq, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.True(t, endResult.Partial) // idempotent: already cleared
}
