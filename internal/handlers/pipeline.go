package handlers

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/verify"
	"github.com/kryptobaseddev/cleo/internal/workflow"
)

func registerPipeline(r *dispatch.Registry) {
	r.Register("pipeline", "stage.gate.pass", pipelineGatePass)
	r.Register("pipeline", "stage.gate.fail", pipelineGateFail)
	r.Register("pipeline", "stage.record", pipelineStageRecord)
	r.Register("pipeline", "stage.skip", pipelineStageSkip)
	r.Register("pipeline", "stage.reset", pipelineStageReset)
	r.Register("pipeline", "release.prepare", pipelineReleaseStub("prepare"))
	r.Register("pipeline", "release.changelog", pipelineReleaseStub("changelog"))
	r.Register("pipeline", "release.commit", pipelineReleaseStub("commit"))
	r.Register("pipeline", "release.tag", pipelineReleaseStub("tag"))
	r.Register("pipeline", "release.push", pipelineReleaseStub("push"))
	r.Register("pipeline", "release.gates.run", pipelineReleaseStub("gates.run"))
	r.Register("pipeline", "release.rollback", pipelineReleaseStub("rollback"))
}

func pipelineGatePass(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return applyGateTransition(req, deps, true)
}

func pipelineGateFail(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return applyGateTransition(req, deps, false)
}

func applyGateTransition(req dispatch.DispatchRequest, deps dispatch.Deps, pass bool) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	gateName, _ := req.Params["gate"].(string)
	reason, _ := req.Params["reason"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		tracker := workflow.NewGateTracker(t.Verification)
		now := time.Now().UTC()
		var err error
		if pass {
			err = tracker.Pass(model.GateName(gateName), now)
		} else {
			err = tracker.Fail(model.GateName(gateName), reason, now)
		}
		if err != nil {
			return nil, &dispatch.HandlerError{Code: "LIFECYCLE_GATE_FAILED", Kind: "lifecycle-gate-failed", Message: err.Error()}
		}
		t.Verification = tracker.Gates()
		t.Updated = now
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated.Verification
	result.AffectedID = updated.ID
	return result, nil
}

func pipelineStageRecord(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	stageName, _ := req.Params["stage"].(string)
	status, _ := req.Params["status"].(string)
	if status == "" {
		status = "recorded"
	}

	alreadyRecorded := false
	var updated model.Task
	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		for i, s := range t.Lifecycle.Stages {
			if s.Name == stageName {
				if s.Status == status {
					alreadyRecorded = true
					updated = t
					return tasks, nil
				}
				t.Lifecycle.Stages[i].Status = status
				t.Lifecycle.Current = stageName
				t.Updated = time.Now().UTC()
				tasks[idx] = t
				updated = t
				return tasks, nil
			}
		}
		t.Lifecycle.Stages = append(t.Lifecycle.Stages, model.LifecycleStage{Name: stageName, Status: status})
		t.Lifecycle.Current = stageName
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated.Lifecycle
	result.AffectedID = updated.ID
	result.Partial = alreadyRecorded
	return result, nil
}

func pipelineStageSkip(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	req.Params["status"] = "skipped"
	return pipelineStageRecord(ctx, req, vctx, deps)
}

func pipelineStageReset(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.Lifecycle = model.LifecycleRecord{Workflow: t.Lifecycle.Workflow}
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated.Lifecycle
	result.AffectedID = updated.ID
	return result, nil
}

// pipelineReleaseStub returns a handler for the release.* operations this
// implementation treats as external-tool collaborators (git/changelog/CI):
// it acknowledges the step without performing the external action itself,
// matching spec.md §1's explicit scoping of those tools out. It still marks
// the step done on the task's lifecycle record, so a repeated call against
// the same task (notably release.tag, declared idempotent in
// internal/dispatch/idempotency.go) can detect "already done" and set
// Partial instead of silently re-acknowledging every time.
func pipelineReleaseStub(step string) dispatch.HandlerFunc {
	return func(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
		var result dispatch.HandlerResult
		id, _ := req.Params["id"].(string)
		if id == "" {
			return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: "release steps require params.id"}
		}

		alreadyDone := false
		err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
			idx, ok := findTask(tasks, id)
			if !ok {
				return nil, notFound(id)
			}
			t := tasks[idx]
			if t.Lifecycle.ReleaseSteps[step] {
				alreadyDone = true
				return tasks, nil
			}
			if t.Lifecycle.ReleaseSteps == nil {
				t.Lifecycle.ReleaseSteps = make(map[string]bool)
			}
			t.Lifecycle.ReleaseSteps[step] = true
			t.Updated = time.Now().UTC()
			tasks[idx] = t
			return tasks, nil
		})
		if err != nil {
			return result, err
		}

		result.Data = map[string]any{"step": step, "acknowledged": true}
		result.AffectedID = id
		result.Partial = alreadyDone
		return result, nil
	}
}
