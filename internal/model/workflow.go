package model

import "time"

// GateStatus is the state of one workflow gate.
type GateStatus string

const (
	GateNull    GateStatus = "null"
	GatePassed  GateStatus = "passed"
	GateFailed  GateStatus = "failed"
	GateBlocked GateStatus = "blocked"
)

// GateName identifies one of the six fixed workflow gates, in order.
type GateName string

const (
	GateImplemented   GateName = "implemented"
	GateTestsPassed   GateName = "testsPassed"
	GateQAPassed      GateName = "qaPassed"
	GateCleanupDone   GateName = "cleanupDone"
	GateSecurityPassed GateName = "securityPassed"
	GateDocumented    GateName = "documented"
)

// GateOrder is the fixed linear predecessor chain G0..G5.
var GateOrder = []GateName{
	GateImplemented,
	GateTestsPassed,
	GateQAPassed,
	GateCleanupDone,
	GateSecurityPassed,
	GateDocumented,
}

// GateAgent maps each gate to its assigned agent role.
var GateAgent = map[GateName]string{
	GateImplemented:    "coder",
	GateTestsPassed:    "testing",
	GateQAPassed:       "qa",
	GateCleanupDone:    "cleanup",
	GateSecurityPassed: "security",
	GateDocumented:     "docs",
}

// Gate is the per-gate state record.
type Gate struct {
	Status        GateStatus `json:"status"`
	FailureReason string     `json:"failureReason,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// WorkflowGates holds the six gate states for a task, keyed by name.
type WorkflowGates struct {
	Implemented    Gate `json:"implemented"`
	TestsPassed    Gate `json:"testsPassed"`
	QAPassed       Gate `json:"qaPassed"`
	CleanupDone    Gate `json:"cleanupDone"`
	SecurityPassed Gate `json:"securityPassed"`
	Documented     Gate `json:"documented"`
}

// NewWorkflowGates returns a tracker with every gate at status null.
func NewWorkflowGates() WorkflowGates {
	return WorkflowGates{
		Implemented:    Gate{Status: GateNull},
		TestsPassed:    Gate{Status: GateNull},
		QAPassed:       Gate{Status: GateNull},
		CleanupDone:    Gate{Status: GateNull},
		SecurityPassed: Gate{Status: GateNull},
		Documented:     Gate{Status: GateNull},
	}
}

// Clone returns a deep copy of g.
func (g WorkflowGates) Clone() WorkflowGates {
	out := g
	for _, name := range GateOrder {
		gate := *out.get(name)
		if gate.UpdatedAt != nil {
			ts := *gate.UpdatedAt
			gate.UpdatedAt = &ts
		}
		out.set(name, gate)
	}
	return out
}

func (g *WorkflowGates) get(name GateName) *Gate {
	switch name {
	case GateImplemented:
		return &g.Implemented
	case GateTestsPassed:
		return &g.TestsPassed
	case GateQAPassed:
		return &g.QAPassed
	case GateCleanupDone:
		return &g.CleanupDone
	case GateSecurityPassed:
		return &g.SecurityPassed
	case GateDocumented:
		return &g.Documented
	default:
		return nil
	}
}

func (g *WorkflowGates) set(name GateName, v Gate) {
	if p := g.get(name); p != nil {
		*p = v
	}
}

// Get returns the gate identified by name, or nil if name is unknown.
func (g *WorkflowGates) Get(name GateName) *Gate {
	return g.get(name)
}

// Predecessor returns the gate that must pass before name may pass, and
// whether one exists.
func Predecessor(name GateName) (GateName, bool) {
	for i, n := range GateOrder {
		if n == name && i > 0 {
			return GateOrder[i-1], true
		}
	}
	return "", false
}

// Index returns the position of name in GateOrder, or -1 if unknown.
func Index(name GateName) int {
	for i, n := range GateOrder {
		if n == name {
			return i
		}
	}
	return -1
}

// LifecycleStage is one named step of an optional per-task pipeline.
type LifecycleStage struct {
	Name     string            `json:"name"`
	Status   string            `json:"status"`
	Gates    map[string]string `json:"gates,omitempty"`
	Evidence []string          `json:"evidence,omitempty"`
}

// LifecycleRecord holds the ordered optional pipeline stages for a task.
type LifecycleRecord struct {
	Workflow string           `json:"workflow,omitempty"`
	Stages   []LifecycleStage `json:"stages,omitempty"`
	Current  string           `json:"current,omitempty"`

	// ReleaseSteps records which release.* steps (prepare, changelog,
	// commit, tag, push, gates.run, rollback) have already run for this
	// task, so a repeat call can detect "already done" instead of
	// silently re-running.
	ReleaseSteps map[string]bool `json:"releaseSteps,omitempty"`
}

// Clone returns a deep copy of l.
func (l LifecycleRecord) Clone() LifecycleRecord {
	out := l
	out.Stages = make([]LifecycleStage, len(l.Stages))
	for i, s := range l.Stages {
		stage := s
		if s.Gates != nil {
			stage.Gates = make(map[string]string, len(s.Gates))
			for k, v := range s.Gates {
				stage.Gates[k] = v
			}
		}
		if s.Evidence != nil {
			stage.Evidence = cloneStrings(s.Evidence)
		}
		out.Stages[i] = stage
	}
	if l.ReleaseSteps != nil {
		out.ReleaseSteps = make(map[string]bool, len(l.ReleaseSteps))
		for k, v := range l.ReleaseSteps {
			out.ReleaseSteps[k] = v
		}
	}
	return out
}
