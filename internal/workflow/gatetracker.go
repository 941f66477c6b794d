package workflow

import (
	"fmt"
	"time"

	"github.com/kryptobaseddev/cleo/internal/model"
)

// ErrPredecessorNotPassed reports that a gate cannot pass because its
// predecessor in model.GateOrder has not passed yet.
type ErrPredecessorNotPassed struct {
	Gate        model.GateName
	Predecessor model.GateName
	Status      model.GateStatus
}

func (e *ErrPredecessorNotPassed) Error() string {
	return fmt.Sprintf("workflow: gate %s requires predecessor %s to be passed, was %s", e.Gate, e.Predecessor, e.Status)
}

// ErrUnknownGate reports an attempt to operate on a name outside model.GateOrder.
type ErrUnknownGate struct{ Gate model.GateName }

func (e *ErrUnknownGate) Error() string {
	return fmt.Sprintf("workflow: unknown gate %q", e.Gate)
}

// GateTracker wraps a task's six-gate state, enforcing the fixed G0..G5
// predecessor chain and failure cascade: failing a gate resets every gate
// after it back to null.
type GateTracker struct {
	gates model.WorkflowGates
}

// NewGateTracker returns a tracker over an existing gate record (e.g. loaded
// from a task) so pass/fail mutate a task's actual state in place.
func NewGateTracker(gates model.WorkflowGates) *GateTracker {
	return &GateTracker{gates: gates}
}

// Gates returns the current gate state.
func (t *GateTracker) Gates() model.WorkflowGates { return t.gates }

// Pass marks name passed, after verifying its predecessor (if any) has
// already passed. Pass takes no acting role and does no role check; callers
// that need role enforcement check the role against model.GateAgent before
// calling Pass.
func (t *GateTracker) Pass(name model.GateName, now time.Time) error {
	gate := t.gates.Get(name)
	if gate == nil {
		return &ErrUnknownGate{Gate: name}
	}
	if pred, ok := model.Predecessor(name); ok {
		predGate := t.gates.Get(pred)
		if predGate == nil || predGate.Status != model.GatePassed {
			status := model.GateNull
			if predGate != nil {
				status = predGate.Status
			}
			return &ErrPredecessorNotPassed{Gate: name, Predecessor: pred, Status: status}
		}
	}
	ts := now
	*gate = model.Gate{Status: model.GatePassed, UpdatedAt: &ts}
	return nil
}

// Fail marks name failed with reason, and cascades: every gate after name in
// model.GateOrder is reset to {null, "", nil} since their prior passes can no
// longer be trusted once an earlier stage fails.
func (t *GateTracker) Fail(name model.GateName, reason string, now time.Time) error {
	gate := t.gates.Get(name)
	if gate == nil {
		return &ErrUnknownGate{Gate: name}
	}
	ts := now
	*gate = model.Gate{Status: model.GateFailed, FailureReason: reason, UpdatedAt: &ts}

	idx := model.Index(name)
	for _, later := range model.GateOrder[idx+1:] {
		*t.gates.Get(later) = model.Gate{Status: model.GateNull}
	}
	return nil
}

// AllPassed reports whether every gate in model.GateOrder has passed.
func (t *GateTracker) AllPassed() bool {
	for _, name := range model.GateOrder {
		if t.gates.Get(name).Status != model.GatePassed {
			return false
		}
	}
	return true
}

// NextAttemptable returns the earliest gate whose predecessor has passed (or
// has none) and which has not itself passed yet, or "" once every gate has
// passed. A failed gate is returned here, so it can be retried.
func (t *GateTracker) NextAttemptable() model.GateName {
	for _, name := range model.GateOrder {
		gate := t.gates.Get(name)
		if gate.Status == model.GatePassed {
			continue
		}
		if pred, ok := model.Predecessor(name); ok {
			if t.gates.Get(pred).Status != model.GatePassed {
				return ""
			}
		}
		return name
	}
	return ""
}
