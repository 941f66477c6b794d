package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func TestToolsSkillInstallEnableDisableLifecycle(t *testing.T) {
	deps := newTestDeps(t)
	root := t.TempDir()

	installReq := dispatch.DispatchRequest{Domain: "tools", Operation: "skill.install", Params: map[string]any{"root": root, "name": "ct-researcher"}}
	result, err := toolsSkillInstall(context.Background(), installReq, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.Equal(t, true, result.Data.(map[string]any)["installed"])

	disableReq := dispatch.DispatchRequest{Domain: "tools", Operation: "skill.disable", Params: map[string]any{"root": root, "name": "ct-researcher"}}
	_, err = toolsSkillDisable(context.Background(), disableReq, verify.OperationContext{}, deps)
	require.NoError(t, err)

	enableReq := dispatch.DispatchRequest{Domain: "tools", Operation: "skill.enable", Params: map[string]any{"root": root, "name": "ct-researcher"}}
	_, err = toolsSkillEnable(context.Background(), enableReq, verify.OperationContext{}, deps)
	require.NoError(t, err)

	uninstallReq := dispatch.DispatchRequest{Domain: "tools", Operation: "skill.uninstall", Params: map[string]any{"root": root, "name": "ct-researcher"}}
	result, err = toolsSkillUninstall(context.Background(), uninstallReq, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.Equal(t, false, result.Data.(map[string]any)["installed"])
}

func TestToolsSkillConfigureRejectsUninstalledSkill(t *testing.T) {
	deps := newTestDeps(t)
	root := t.TempDir()
	req := dispatch.DispatchRequest{Domain: "tools", Operation: "skill.configure", Params: map[string]any{
		"root": root, "name": "ct-researcher", "tokenBudget": float64(8000),
	}}
	_, err := toolsSkillConfigure(context.Background(), req, verify.OperationContext{}, deps)
	require.Error(t, err)
}

func TestToolsIssueAddBugFilesATaskLabeledByKind(t *testing.T) {
	deps := newTestDeps(t)
	req := dispatch.DispatchRequest{Domain: "tools", Operation: "issue.add.bug", Params: map[string]any{
		"title": "Crash on startup", "description": "Nil pointer in init",
	}}
	result, err := toolsIssueAddBug(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)
	require.NotEmpty(t, result.AffectedID)

	tasks, err := deps.Store.LoadTasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Contains(t, tasks[0].Labels, "issue:bug")
}

func TestToolsProviderInjectRecordsTaggedSessionEntry(t *testing.T) {
	deps := newTestDeps(t)
	startSession(t, deps, "epic-1")

	req := dispatch.DispatchRequest{Domain: "tools", Operation: "provider.inject", Params: map[string]any{"provider": "openai"}}
	_, err := toolsProviderInject(context.Background(), req, verify.OperationContext{}, deps)
	require.NoError(t, err)

	sessions, err := deps.Store.LoadSessions()
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Contains(t, sessions[0].Decisions, "provider:openai: ")
}
