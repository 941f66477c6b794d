package handlers

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/paths"
	"github.com/kryptobaseddev/cleo/internal/team"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerTools(r *dispatch.Registry) {
	r.Register("tools", "skill.install", toolsSkillInstall)
	r.Register("tools", "skill.uninstall", toolsSkillUninstall)
	r.Register("tools", "skill.enable", toolsSkillEnable)
	r.Register("tools", "skill.disable", toolsSkillDisable)
	r.Register("tools", "skill.configure", toolsSkillConfigure)
	r.Register("tools", "skill.refresh", toolsSkillRefresh)
	r.Register("tools", "issue.add.bug", toolsIssueAddBug)
	r.Register("tools", "issue.add.feature", toolsIssueAddFeature)
	r.Register("tools", "issue.add.help", toolsIssueAddHelp)
	r.Register("tools", "provider.inject", toolsProviderInject)
}

func skillsDir(req dispatch.DispatchRequest) (string, error) {
	root, _ := req.Params["root"].(string)
	layout, err := paths.NewLayout(root)
	if err != nil {
		return "", err
	}
	return layout.SkillsDir(), nil
}

func toolsSkillInstall(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	if err := team.InstallSkill(dir, name); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = map[string]any{"name": name, "installed": true}
	result.AffectedID = name
	return result, nil
}

func toolsSkillUninstall(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	if err := team.UninstallSkill(dir, name); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = map[string]any{"name": name, "installed": false}
	result.AffectedID = name
	return result, nil
}

func toolsSkillEnable(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	if err := team.EnableSkill(dir, name); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = map[string]any{"name": name, "enabled": true}
	result.AffectedID = name
	return result, nil
}

func toolsSkillDisable(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	if err := team.DisableSkill(dir, name); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = map[string]any{"name": name, "enabled": false}
	result.AffectedID = name
	return result, nil
}

func toolsSkillConfigure(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	cfg := team.SkillConfig{}
	if budget, ok := req.Params["tokenBudget"].(float64); ok {
		cfg.TokenBudget = int(budget)
	}
	if m, ok := req.Params["model"].(string); ok {
		cfg.Model = m
	}
	if tier, ok := req.Params["tier"].(string); ok {
		cfg.Tier = tier
	}
	cfg.References = coerceStringSlice(req.Params["references"])

	if err := team.ConfigureSkill(dir, name, cfg); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = cfg
	result.AffectedID = name
	return result, nil
}

func toolsSkillRefresh(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	name, _ := req.Params["name"].(string)
	dir, err := skillsDir(req)
	if err != nil {
		return result, err
	}
	if err := team.RefreshSkill(dir, name); err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	result.Data = map[string]any{"name": name, "refreshed": true}
	result.AffectedID = name
	return result, nil
}

func toolsIssueAddBug(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return addIssueTask(req, deps, "bug")
}

func toolsIssueAddFeature(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return addIssueTask(req, deps, "feature")
}

func toolsIssueAddHelp(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return addIssueTask(req, deps, "help")
}

// addIssueTask files kind as a new task labeled issue:<kind>, the same
// shape tasks.add produces, so issues show up in every tasks.* query
// without tools owning a separate data file.
func addIssueTask(req dispatch.DispatchRequest, deps dispatch.Deps, kind string) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	title, _ := req.Params["title"].(string)
	desc, _ := req.Params["description"].(string)
	labels := append([]string{"issue:" + kind}, coerceStringSlice(req.Params["labels"])...)

	now := time.Now().UTC()
	var created model.Task
	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		id := nextTaskID(tasks)
		created = model.Task{
			ID: id, Title: title, Description: desc,
			Status: model.StatusPending, Priority: model.PriorityMedium, Type: model.TypeTask,
			Labels: labels, Created: now, Updated: now,
			Verification: model.NewWorkflowGates(),
		}
		return append(tasks, created), nil
	})
	if err != nil {
		return result, err
	}
	result.Data = created
	result.AffectedID = created.ID
	return result, nil
}

// toolsProviderInject records a provider override (e.g. model/thinking
// tier) against the active session, the same free-form log
// session.record.decision writes to, tagged so callers can tell it apart.
func toolsProviderInject(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	provider, _ := req.Params["provider"].(string)
	return recordSessionText(req, deps, "provider:"+provider)
}
