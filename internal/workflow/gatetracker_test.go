package workflow

import (
	"testing"
	"time"

	"github.com/kryptobaseddev/cleo/internal/model"
)

func TestGateTrackerPassRequiresPredecessor(t *testing.T) {
	tr := NewGateTracker(model.NewWorkflowGates())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := tr.Pass(model.GateTestsPassed, now); err == nil {
		t.Fatal("expected error passing testsPassed before implemented")
	}

	if err := tr.Pass(model.GateImplemented, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tr.Pass(model.GateTestsPassed, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Gates().TestsPassed.Status != model.GatePassed {
		t.Fatalf("expected testsPassed, got %s", tr.Gates().TestsPassed.Status)
	}
}

func TestGateTrackerFailCascadesDownstreamGates(t *testing.T) {
	tr := NewGateTracker(model.NewWorkflowGates())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, g := range []model.GateName{
		model.GateImplemented, model.GateTestsPassed, model.GateQAPassed,
		model.GateCleanupDone, model.GateSecurityPassed,
	} {
		if err := tr.Pass(g, now); err != nil {
			t.Fatalf("pass %s: %v", g, err)
		}
	}

	if err := tr.Fail(model.GateTestsPassed, "flaky suite", now); err != nil {
		t.Fatalf("fail: %v", err)
	}

	gates := tr.Gates()
	if gates.Implemented.Status != model.GatePassed {
		t.Fatalf("implemented should stay passed, got %s", gates.Implemented.Status)
	}
	if gates.TestsPassed.Status != model.GateFailed {
		t.Fatalf("testsPassed should be failed, got %s", gates.TestsPassed.Status)
	}
	for _, g := range []model.Gate{gates.QAPassed, gates.CleanupDone, gates.SecurityPassed, gates.Documented} {
		if g.Status != model.GateNull {
			t.Fatalf("downstream gate should reset to null, got %s", g.Status)
		}
	}
}

func TestGateTrackerAllPassed(t *testing.T) {
	tr := NewGateTracker(model.NewWorkflowGates())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if tr.AllPassed() {
		t.Fatal("expected AllPassed false on a fresh tracker")
	}

	for _, g := range model.GateOrder {
		if err := tr.Pass(g, now); err != nil {
			t.Fatalf("pass %s: %v", g, err)
		}
	}
	if !tr.AllPassed() {
		t.Fatal("expected AllPassed true once every gate passed")
	}
}

func TestGateTrackerNextAttemptable(t *testing.T) {
	tr := NewGateTracker(model.NewWorkflowGates())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if got := tr.NextAttemptable(); got != model.GateImplemented {
		t.Fatalf("expected implemented first, got %s", got)
	}

	if err := tr.Pass(model.GateImplemented, now); err != nil {
		t.Fatalf("pass: %v", err)
	}
	if got := tr.NextAttemptable(); got != model.GateTestsPassed {
		t.Fatalf("expected testsPassed next, got %s", got)
	}
}

func TestGateTrackerUnknownGate(t *testing.T) {
	tr := NewGateTracker(model.NewWorkflowGates())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := tr.Pass("bogus", now); err == nil {
		t.Fatal("expected error for unknown gate")
	}
}
