package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerSession(r *dispatch.Registry) {
	r.Register("session", "start", sessionStart)
	r.Register("session", "end", sessionEnd)
	r.Register("session", "suspend", sessionSuspend)
	r.Register("session", "resume", sessionResume)
	r.Register("session", "gc", sessionGC)
	r.Register("session", "show", sessionShow)
	r.Register("session", "list", sessionList)
	r.Register("session", "status", sessionStatus)
	r.Register("session", "record.decision", sessionRecordDecision)
	r.Register("session", "record.assumption", sessionRecordAssumption)
}

func sessionNotFound(id string) error {
	return &dispatch.HandlerError{Code: "NOT_FOUND", Kind: "not-found", Message: fmt.Sprintf("session %q not found", id)}
}

func findSession(sessions []model.Session, id string) (int, bool) {
	for i := range sessions {
		if sessions[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func activeSession(sessions []model.Session) (int, bool) {
	for i := range sessions {
		if sessions[i].Status == model.SessionActive {
			return i, true
		}
	}
	return -1, false
}

func sessionStart(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	scope, _ := req.Params["scope"].(string)
	var started model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		if _, active := activeSession(sessions); active {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "a session is already active"}
		}
		started = model.Session{ID: "sess-" + uuid.NewString(), Scope: scope, Status: model.SessionActive, StartedAt: time.Now().UTC()}
		sessions = append(sessions, started)
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = started
	result.AffectedID = started.ID
	return result, nil
}

func sessionEnd(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, hasID := req.Params["id"].(string)
	alreadyEnded := false
	var ended model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx := -1
		if hasID && id != "" {
			idx, _ = findSession(sessions, id)
		} else {
			idx, _ = activeSession(sessions)
		}
		if idx < 0 {
			return sessionNotFound(id)
		}
		s := sessions[idx]
		if s.Status == model.SessionEnded {
			alreadyEnded = true
			ended = s
			return nil
		}
		now := time.Now().UTC()
		s.Status = model.SessionEnded
		s.EndedAt = &now
		sessions[idx] = s
		ended = s
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = ended
	result.AffectedID = ended.ID
	result.Partial = alreadyEnded
	return result, nil
}

func sessionSuspend(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	var suspended model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx, ok := activeSession(sessions)
		if !ok {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "no active session to suspend"}
		}
		sessions[idx].Status = model.SessionSuspended
		suspended = sessions[idx]
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = suspended
	result.AffectedID = suspended.ID
	return result, nil
}

func sessionResume(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	var resumed model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		if _, active := activeSession(sessions); active {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "another session is already active"}
		}
		idx, ok := findSession(sessions, id)
		if !ok {
			return sessionNotFound(id)
		}
		sessions[idx].Status = model.SessionActive
		resumed = sessions[idx]
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = resumed
	result.AffectedID = resumed.ID
	return result, nil
}

// sessionGCThreshold is how long after its StartedAt a suspended session may
// remain before gc ends it.
const sessionGCThreshold = 24 * time.Hour

func sessionGC(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	var ended []string

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for i := range sessions {
			if sessions[i].Status != model.SessionSuspended {
				continue
			}
			if now.Sub(sessions[i].StartedAt) > sessionGCThreshold {
				sessions[i].Status = model.SessionEnded
				sessions[i].EndedAt = &now
				ended = append(ended, sessions[i].ID)
			}
		}
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = map[string]any{"ended": ended}
	return result, nil
}

func sessionShow(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	sessions, err := deps.Store.LoadSessions()
	if err != nil {
		return result, err
	}
	idx, ok := findSession(sessions, id)
	if !ok {
		return result, sessionNotFound(id)
	}
	result.Data = sessions[idx]
	return result, nil
}

func sessionList(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	sessions, err := deps.Store.LoadSessions()
	if err != nil {
		return result, err
	}
	result.Data = sessions
	return result, nil
}

func sessionStatus(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	sessions, err := deps.Store.LoadSessions()
	if err != nil {
		return result, err
	}
	idx, active := activeSession(sessions)
	if !active {
		result.Data = map[string]any{"status": "none"}
		return result, nil
	}
	result.Data = sessions[idx]
	return result, nil
}

func sessionRecordDecision(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return recordSessionText(req, deps, "decision")
}

func sessionRecordAssumption(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	return recordSessionText(req, deps, "assumption")
}

func recordSessionText(req dispatch.DispatchRequest, deps dispatch.Deps, kind string) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	text, _ := req.Params["text"].(string)
	var recorded model.Session

	err := deps.Store.Lock("sessions", func() error {
		sessions, err := deps.Store.LoadSessions()
		if err != nil {
			return err
		}
		idx, ok := activeSession(sessions)
		if !ok {
			return &dispatch.HandlerError{Code: "LIFECYCLE_TRANSITION_INVALID", Kind: "lifecycle-transition-invalid",
				Message: "no active session to record against"}
		}
		if kind == "assumption" {
			sessions[idx].Assumptions = append(sessions[idx].Assumptions, text)
		} else if kind == "decision" {
			sessions[idx].Decisions = append(sessions[idx].Decisions, text)
		} else {
			sessions[idx].Decisions = append(sessions[idx].Decisions, kind+": "+text)
		}
		recorded = sessions[idx]
		return deps.Store.SaveSessions(sessions)
	})
	if err != nil {
		return result, err
	}
	result.Data = recorded
	result.AffectedID = recorded.ID
	return result, nil
}
