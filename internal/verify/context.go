// Package verify implements the four-layer Verification Gate that every
// mutating dispatch operation passes through before the store is touched,
// with the Protocol Enforcer as its fourth layer.
package verify

import (
	"time"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
	"github.com/kryptobaseddev/cleo/internal/graph"
	"github.com/kryptobaseddev/cleo/internal/model"
)

// OperationContext is the input to the four verification layers.
type OperationContext struct {
	Domain       string
	Operation    string
	Gateway      string
	Params       map[string]any
	ProtocolType string // "", "research", "implementation", "testing", "validation"

	// Snapshot the layers validate against.
	Tasks    []model.Task
	Archive  []model.ArchiveEntry
	Sessions []model.Session
	Config   Config
}

// Config carries the subset of internal/config.Config the verification
// layers need, kept narrow so this package does not import internal/config
// (which would create an import cycle with the dispatch pipeline wiring).
type Config struct {
	MaxSiblings int
	MaxDepth    int
}

// LayerStatus is the outcome of one verification layer.
type LayerStatus string

const (
	Passed  LayerStatus = "PASSED"
	Failed  LayerStatus = "FAILED"
	Skipped LayerStatus = "SKIPPED"
)

// Violation is one concrete rule failure surfaced by a layer.
type Violation struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Kind    exitcode.ErrorKind `json:"kind"`
}

// LayerResult is what each of the four layers returns.
type LayerResult struct {
	Status     LayerStatus
	Violations []Violation
	DurationMs int64
}

// GateResult is the outcome of running the full four-layer chain in strict
// mode: execution stops at the first FAILED layer.
type GateResult struct {
	Passed    bool
	BlockedAt string // layer name, set only when Passed is false
	Layers    map[string]LayerResult
}

// Run executes the four layers in fixed order, short-circuiting in strict
// mode at the first FAILED layer (the only mode CLEO exposes externally).
func Run(ctx OperationContext) GateResult {
	result := GateResult{Passed: true, Layers: map[string]LayerResult{}}

	layers := []struct {
		name string
		fn   func(OperationContext) LayerResult
	}{
		{"schema", SchemaLayer},
		{"semantic", SemanticLayer},
		{"referential", ReferentialLayer},
		{"protocol", ProtocolLayer},
	}

	for _, l := range layers {
		start := time.Now()
		res := l.fn(ctx)
		res.DurationMs = time.Since(start).Milliseconds()
		result.Layers[l.name] = res
		if res.Status == Failed {
			result.Passed = false
			result.BlockedAt = l.name
			return result
		}
	}
	return result
}

// buildGraph is a small helper shared by the Referential layer and by
// handlers that need the same DAG view verification just validated
// against.
func buildGraph(ctx OperationContext) *graph.DepGraph {
	return graph.Build(ctx.Tasks)
}
