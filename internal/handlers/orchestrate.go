package handlers

import (
	"context"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/orchestrator"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerOrchestrate(r *dispatch.Registry) {
	r.Register("orchestrate", "start", orchestrateStart)
	r.Register("orchestrate", "spawn", orchestrateSpawn)
	r.Register("orchestrate", "validate", orchestrateValidate)
	r.Register("orchestrate", "parallel.start", orchestrateParallelStart)
	r.Register("orchestrate", "parallel.end", orchestrateParallelEnd)
}

// orchestrateStart resolves which skill a task would spawn under without
// starting any process, so a caller can preview the dispatch decision.
func orchestrateStart(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)

	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	idx, ok := findTask(tasks, id)
	if !ok {
		return result, notFound(id)
	}

	skill := orchestrator.SelectSkill(tasks[idx])
	result.Data = map[string]any{"taskId": id, "skill": skill}
	result.AffectedID = id
	return result, nil
}

// orchestrateSpawn selects a skill for the task, assembles its spawn prompt,
// and launches it as a tracked child process via the configured agent
// command.
func orchestrateSpawn(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	prompt, meta, err := buildSpawnPrompt(req, deps)
	if err != nil {
		return result, err
	}

	cfg := deps.Config.Get().Agent
	pid, err := deps.Orchestrator.Spawn(ctx, cfg.Command, cfg.Args, prompt.Prompt, cfg.WorkDir)
	if err != nil {
		return result, &dispatch.HandlerError{Code: "DEPENDENCY_ERROR", Kind: "dependency", Message: err.Error()}
	}

	result.Data = map[string]any{
		"pid":             pid,
		"skill":           meta.Name,
		"tokenResolution": prompt.TokenResolution,
	}
	result.AffectedID = prompt.TaskID
	return result, nil
}

// orchestrateValidate assembles a spawn prompt and reports whether every
// token in its template resolved, without starting a process.
func orchestrateValidate(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	prompt, _, err := buildSpawnPrompt(req, deps)
	if err != nil {
		return result, err
	}
	result.Data = map[string]any{
		"skill":           prompt.Skill,
		"tokenResolution": prompt.TokenResolution,
		"prompt":          prompt.Prompt,
	}
	result.AffectedID = prompt.TaskID
	return result, nil
}

func buildSpawnPrompt(req dispatch.DispatchRequest, deps dispatch.Deps) (orchestrator.SpawnPrompt, orchestrator.SkillMetadata, error) {
	id, _ := req.Params["id"].(string)
	template, _ := req.Params["template"].(string)

	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return orchestrator.SpawnPrompt{}, orchestrator.SkillMetadata{}, err
	}
	idx, ok := findTask(tasks, id)
	if !ok {
		return orchestrator.SpawnPrompt{}, orchestrator.SkillMetadata{}, notFound(id)
	}
	task := tasks[idx]

	skillName := orchestrator.SelectSkill(task)
	meta := orchestrator.SkillMetadata{Name: skillName, Template: template}
	if budget, ok := req.Params["tokenBudget"].(float64); ok {
		meta.TokenBudget = int(budget)
	}
	if m, ok := req.Params["model"].(string); ok {
		meta.Model = m
	}
	if tier, ok := req.Params["tier"].(string); ok {
		meta.Tier = tier
	}

	sessions, err := deps.Store.LoadSessions()
	if err != nil {
		return orchestrator.SpawnPrompt{}, orchestrator.SkillMetadata{}, err
	}
	var active *model.Session
	if i, ok := activeSession(sessions); ok {
		active = &sessions[i]
	}

	prompt := orchestrator.PrepareSpawn(meta, orchestrator.SpawnContext{Task: task, Session: active})
	return prompt, meta, nil
}

func orchestrateParallelStart(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	ids := coerceStringSlice(req.Params["ids"])
	var active model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx, ok := activeSession(sessions)
		if !ok {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "no active session for a parallel work group"}
		}
		sessions[idx].ParallelTaskIDs = ids
		active = sessions[idx]
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = map[string]any{"sessionId": active.ID, "parallelTaskIds": active.ParallelTaskIDs}
	result.AffectedID = active.ID
	return result, nil
}

func orchestrateParallelEnd(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	var active model.Session
	alreadyEmpty := false

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx, ok := activeSession(sessions)
		if !ok {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "no active session to end a parallel work group on"}
		}
		if len(sessions[idx].ParallelTaskIDs) == 0 {
			alreadyEmpty = true
			active = sessions[idx]
			return nil
		}
		sessions[idx].ParallelTaskIDs = nil
		active = sessions[idx]
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = map[string]any{"sessionId": active.ID}
	result.AffectedID = active.ID
	result.Partial = alreadyEmpty
	return result, nil
}
