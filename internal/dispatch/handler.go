package dispatch

import (
	"context"

	"github.com/kryptobaseddev/cleo/internal/audit"
	"github.com/kryptobaseddev/cleo/internal/config"
	"github.com/kryptobaseddev/cleo/internal/jobs"
	"github.com/kryptobaseddev/cleo/internal/orchestrator"
	"github.com/kryptobaseddev/cleo/internal/store"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

// Deps bundles the per-process singletons every handler needs. One Deps is
// constructed per project root and reused across dispatch calls.
type Deps struct {
	Store        store.Engine
	Audit        *audit.Log
	Config       config.ConfigManager
	Orchestrator *orchestrator.Dispatcher
	Jobs         *jobs.Manager
}

// HandlerResult is what a domain handler returns on success. Handlers never
// construct a DispatchResponse themselves; the pipeline wraps this.
type HandlerResult struct {
	Data       any
	Partial    bool
	AffectedID string // populated for mutations that affect a single resource
}

// HandlerError is the structured error a handler returns instead of a bare
// error when it wants to control the envelope's code/fix/alternatives.
type HandlerError struct {
	Code         string
	Kind         string // exitcode.ErrorKind, kept as string to avoid a cyclic import in call sites that only build envelopes
	Message      string
	Details      map[string]any
	Fix          string
	Alternatives []string
}

func (e *HandlerError) Error() string { return e.Message }

// HandlerFunc is a pure function over the current dispatch request and its
// verified context; it never calls another handler directly.
type HandlerFunc func(ctx context.Context, req DispatchRequest, vctx verify.OperationContext, deps Deps) (HandlerResult, error)

// Registry maps canonical (domain, operation) pairs to their handler.
type Registry struct {
	handlers map[string]HandlerFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register adds a handler for (domain, operation), panicking on a duplicate
// registration since that always indicates a wiring bug at startup.
func (r *Registry) Register(domain, operation string, fn HandlerFunc) {
	key := domain + "." + operation
	if _, exists := r.handlers[key]; exists {
		panic("dispatch: duplicate handler registration for " + key)
	}
	r.handlers[key] = fn
}

// Lookup returns the handler for (domain, operation), or nil if none is registered.
func (r *Registry) Lookup(domain, operation string) HandlerFunc {
	return r.handlers[domain+"."+operation]
}
