package dispatch

import (
	"fmt"

	"github.com/kryptobaseddev/cleo/internal/verify"
)

// buildOperationContext loads the current store snapshot and config and
// assembles the verify.OperationContext every mutate dispatch is checked
// against. Query dispatches build the same context so handlers can share
// read-only verification helpers (e.g. graph traversal) without a second
// store round trip.
func (p *Pipeline) buildOperationContext(req DispatchRequest, canonicalDomain, canonicalOp string) (verify.OperationContext, error) {
	tasks, err := p.deps.Store.LoadTasks()
	if err != nil {
		return verify.OperationContext{}, fmt.Errorf("dispatch: load tasks: %w", err)
	}
	archive, err := p.deps.Store.LoadArchive()
	if err != nil {
		return verify.OperationContext{}, fmt.Errorf("dispatch: load archive: %w", err)
	}
	sessions, err := p.deps.Store.LoadSessions()
	if err != nil {
		return verify.OperationContext{}, fmt.Errorf("dispatch: load sessions: %w", err)
	}

	vcfg := verify.Config{MaxSiblings: 20, MaxDepth: 3}
	if p.deps.Config != nil {
		cfg := p.deps.Config.Get()
		vcfg = verify.Config{MaxSiblings: cfg.Hierarchy.MaxSiblings, MaxDepth: cfg.Hierarchy.MaxDepth}
	}

	protocolType, _ := req.Params["protocolType"].(string)

	return verify.OperationContext{
		Domain:       canonicalDomain,
		Operation:    canonicalOp,
		Gateway:      string(req.Gateway),
		Params:       req.Params,
		ProtocolType: protocolType,
		Tasks:        tasks,
		Archive:      archive,
		Sessions:     sessions,
		Config:       vcfg,
	}, nil
}
