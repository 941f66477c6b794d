// Package handlers implements the nine canonical domain handlers (L3):
// tasks, session, memory, check, pipeline, orchestrate, tools, admin, nexus.
// Each handler is a pure function over (Store, VerificationGate-checked
// context, params); handlers never call each other directly.
package handlers

import "github.com/kryptobaseddev/cleo/internal/dispatch"

// Register wires every implemented (domain, operation) handler into
// registry. nexus has no handlers: at the orchestrator tier the dispatch
// pipeline answers every nexus.* operation with NOT_IMPLEMENTED before a
// registry lookup happens; at lower tiers the tier check rejects it first
// with INVALID_OPERATION.
func Register(registry *dispatch.Registry) {
	registerTasks(registry)
	registerSession(registry)
	registerAdmin(registry)
	registerMemory(registry)
	registerCheck(registry)
	registerPipeline(registry)
	registerOrchestrate(registry)
	registerTools(registry)
}
