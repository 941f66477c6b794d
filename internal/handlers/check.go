package handlers

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerCheck(r *dispatch.Registry) {
	r.Register("check", "compliance.record", checkComplianceRecord)
	r.Register("check", "test.run", checkTestRun)
}

func checkComplianceRecord(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return recordTaskEvidence(req, deps, "compliance.record")
}

func checkTestRun(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return recordTaskEvidence(req, deps, "test.run")
}

// recordTaskEvidence appends a timestamped evidence string to the current
// lifecycle stage of the named task, which is how check.* results surface
// on tasks.show without check owning its own data file.
func recordTaskEvidence(req dispatch.DispatchRequest, deps dispatch.Deps, action string) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	detail, _ := req.Params["detail"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		evidence := action
		if detail != "" {
			evidence = action + ": " + detail
		}
		if n := len(t.Lifecycle.Stages); n > 0 {
			t.Lifecycle.Stages[n-1].Evidence = append(t.Lifecycle.Stages[n-1].Evidence, evidence)
		}
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
