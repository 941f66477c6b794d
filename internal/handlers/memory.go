package handlers

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerMemory(r *dispatch.Registry) {
	r.Register("memory", "inject", memoryInject)
	r.Register("memory", "link", memoryLink)
	r.Register("memory", "manifest.append", memoryManifestAppend)
	r.Register("memory", "manifest.archive", memoryManifestArchive)
	r.Register("memory", "pattern.store", memoryPatternStore)
	r.Register("memory", "learning.store", memoryLearningStore)
}

// memoryInject appends a contextual note to the task named by params.id, the
// same notes log tasks.complete appends to.
func memoryInject(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	text, _ := req.Params["text"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.Notes = append(t.Notes, model.Note{Text: text, At: time.Now().UTC(), By: "memory.inject"})
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated.Notes
	result.AffectedID = updated.ID
	return result, nil
}

// memoryLink records a cross-task reference by adding the target to the
// source task's Files list, the closest existing free-form reference slot on
// a task.
func memoryLink(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	ref, _ := req.Params["ref"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.Files = append(t.Files, ref)
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated.Files
	result.AffectedID = updated.ID
	return result, nil
}

// memoryManifestAppend trusts the Protocol Enforcer layer (already run by
// the pipeline before this handler fires) to have validated params.manifest;
// it only echoes the validated entry back, since CLEO's manifest file itself
// is one of the external collaborators spec.md §1 scopes out.
func memoryManifestAppend(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return dispatch.HandlerResult{Data: req.Params["manifest"]}, nil
}

func memoryManifestArchive(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return dispatch.HandlerResult{Data: map[string]any{"archived": true}}, nil
}

func memoryPatternStore(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return dispatch.HandlerResult{Data: map[string]any{"stored": true, "kind": "pattern"}}, nil
}

func memoryLearningStore(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return dispatch.HandlerResult{Data: map[string]any{"stored": true, "kind": "learning"}}, nil
}
