package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/kryptobaseddev/cleo/internal/config"
	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/jobs"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/orchestrator"
	"github.com/kryptobaseddev/cleo/internal/store"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerAdmin(r *dispatch.Registry) {
	r.Register("admin", "init", adminInit)
	r.Register("admin", "config.set", adminConfigSet)
	r.Register("admin", "backup", adminBackup)
	r.Register("admin", "restore", adminRestore)
	r.Register("admin", "migrate", adminMigrate)
	r.Register("admin", "sync", adminSync)
	r.Register("admin", "cleanup", adminCleanup)
	r.Register("admin", "job.cancel", adminJobCancel)
	r.Register("admin", "safestop", adminSafestop)
	r.Register("admin", "inject.generate", adminInjectGenerate)
}

func adminInit(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	if len(tasks) > 0 {
		result.Partial = true // idempotent: project already initialized
		result.Data = map[string]any{"initialized": false}
		return result, nil
	}
	if err := deps.Store.SaveTasks([]model.Task{}); err != nil {
		return result, err
	}
	if err := deps.Store.SaveSessions([]model.Session{}); err != nil {
		return result, err
	}
	if err := deps.Store.SaveArchive([]model.ArchiveEntry{}); err != nil {
		return result, err
	}
	result.Data = map[string]any{"initialized": true}
	return result, nil
}

func adminConfigSet(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	key, _ := req.Params["key"].(string)
	value, _ := req.Params["value"].(string)

	if deps.Config == nil {
		return result, &dispatch.HandlerError{Code: "INTERNAL_ERROR", Kind: "internal", Message: "config manager not wired"}
	}
	current := deps.Config.Get()
	updated, err := config.Set(current, key, value)
	if err != nil {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
	}
	deps.Config.Set(updated)
	result.Data = updated
	return result, nil
}

func adminBackup(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	backer, ok := deps.Store.(interface {
		BackupNow(time.Time) (string, error)
	})
	if !ok {
		return result, &dispatch.HandlerError{Code: "INTERNAL_ERROR", Kind: "internal", Message: "backup not supported by this engine"}
	}
	path, err := backer.BackupNow(time.Now().UTC())
	if err != nil {
		return result, err
	}
	result.Data = map[string]any{"path": path}
	return result, nil
}

func adminMigrate(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	direction, _ := req.Params["direction"].(string)

	jsonStore, isJSON := deps.Store.(*store.Store)
	if !isJSON {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: "migrate requires the active engine to be json or sqlite as source"}
	}
	layout := jsonStore.Layout()

	if _, err := jsonStore.BackupNow(time.Now().UTC()); err != nil {
		return result, err
	}

	switch direction {
	case "", "json-to-sqlite":
		if err := store.MigrateJSONToSQLite(jsonStore, layout); err != nil {
			return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
		}
	case "sqlite-to-json":
		sqliteStore, err := store.OpenSQLite(layout)
		if err != nil {
			return result, err
		}
		defer sqliteStore.Close()
		if err := store.MigrateSQLiteToJSON(sqliteStore, jsonStore); err != nil {
			return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: err.Error()}
		}
	default:
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: fmt.Sprintf("unknown migration direction %q", direction)}
	}
	result.Data = map[string]any{"direction": direction}
	return result, nil
}

func adminCleanup(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	result.Data = map[string]any{"removed": 0}
	return result, nil
}

func adminRestore(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	path, _ := req.Params["path"].(string)
	if path == "" {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: "restore requires params.path"}
	}
	restorer, ok := deps.Store.(interface{ RestoreFrom(string) error })
	if !ok {
		return result, &dispatch.HandlerError{Code: "INTERNAL_ERROR", Kind: "internal", Message: "restore not supported by this engine"}
	}
	if err := restorer.RestoreFrom(path); err != nil {
		return result, err
	}
	result.Data = map[string]any{"restoredFrom": path}
	return result, nil
}

// adminSync reloads and re-saves every live data file off the dispatch
// goroutine as a background job, catching any drift between the on-disk
// shape and what the current schema version expects.
func adminSync(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	if deps.Jobs == nil {
		return result, &dispatch.HandlerError{Code: "INTERNAL_ERROR", Kind: "internal", Message: "job manager not wired"}
	}
	jobID, err := deps.Jobs.Start(func(jctx context.Context) (any, error) {
		tasks, err := deps.Store.LoadTasks()
		if err != nil {
			return nil, err
		}
		if err := deps.Store.SaveTasks(tasks); err != nil {
			return nil, err
		}
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return nil, err
		}
		if err := deps.Store.SaveSessions(sessions); err != nil {
			return nil, err
		}
		archive, err := deps.Store.LoadArchive()
		if err != nil {
			return nil, err
		}
		if err := deps.Store.SaveArchive(archive); err != nil {
			return nil, err
		}
		return map[string]any{"tasks": len(tasks), "sessions": len(sessions), "archive": len(archive)}, nil
	})
	if err != nil {
		if err == jobs.ErrAtCapacity {
			return result, &dispatch.HandlerError{Code: "DEPENDENCY_ERROR", Kind: "dependency", Message: "job manager at capacity"}
		}
		return result, err
	}
	result.Data = map[string]any{"jobId": jobID}
	result.AffectedID = jobID
	return result, nil
}

func adminJobCancel(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	jobID, _ := req.Params["jobId"].(string)
	if deps.Jobs == nil {
		return result, &dispatch.HandlerError{Code: "INTERNAL_ERROR", Kind: "internal", Message: "job manager not wired"}
	}
	if err := deps.Jobs.Cancel(jobID); err != nil {
		if err == jobs.ErrNotFound {
			return result, notFound(jobID)
		}
		return result, err
	}
	result.Data = map[string]any{"jobId": jobID, "status": "cancelled"}
	result.AffectedID = jobID
	return result, nil
}

// adminSafestop ends the active session (idempotently) and cancels every
// running background job, the shutdown path a caller runs before killing
// the process.
func adminSafestop(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	var cancelled []string

	if deps.Jobs != nil {
		for _, job := range deps.Jobs.List() {
			if job.Status == jobs.StatusRunning {
				if err := deps.Jobs.Cancel(job.ID); err == nil {
					cancelled = append(cancelled, job.ID)
				}
			}
		}
	}

	sessionEnded := false
	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx, ok := activeSession(sessions)
		if !ok {
			return nil
		}
		now := time.Now().UTC()
		sessions[idx].Status = model.SessionEnded
		sessions[idx].EndedAt = &now
		sessionEnded = true
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}

	result.Data = map[string]any{"sessionEnded": sessionEnded, "jobsCancelled": cancelled}
	return result, nil
}

// adminInjectGenerate assembles a context-injection prompt for a task
// without selecting a skill or spawning a process, for callers that just
// want the merged token context as text (e.g. pasting into an external
// tool).
func adminInjectGenerate(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	template, _ := req.Params["template"].(string)
	if template == "" {
		template = "Task {{task.id}}: {{task.title}}\n\n{{task.description}}"
	}

	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	idx, ok := findTask(tasks, id)
	if !ok {
		return result, notFound(id)
	}

	sessions, err := deps.Store.LoadSessions()
	if err != nil {
		return result, err
	}
	var active *model.Session
	if i, ok := activeSession(sessions); ok {
		active = &sessions[i]
	}

	prompt := orchestrator.PrepareSpawn(
		orchestrator.SkillMetadata{Name: "inject.generate", Template: template},
		orchestrator.SpawnContext{Task: tasks[idx], Session: active},
	)
	result.Data = map[string]any{"prompt": prompt.Prompt, "tokenResolution": prompt.TokenResolution}
	result.AffectedID = id
	return result, nil
}
