package dispatch

import (
	"context"
	"time"

	"github.com/kryptobaseddev/cleo/internal/audit"
	"github.com/kryptobaseddev/cleo/internal/exitcode"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

// Pipeline is the one place every operation flows through: it owns the
// handler registry and the per-project Deps, and implements the middleware
// chain in fixed order (tier projection, alias resolution, parameter
// validation, verification gate, audit-start, handler, audit-finish).
type Pipeline struct {
	registry *Registry
	deps     Deps
}

// New returns a Pipeline wired to registry and deps.
func New(registry *Registry, deps Deps) *Pipeline {
	return &Pipeline{registry: registry, deps: deps}
}

// Dispatch runs req through the full middleware chain and returns the
// envelope every adapter returns verbatim.
func (p *Pipeline) Dispatch(ctx context.Context, req DispatchRequest) DispatchResponse {
	start := time.Now()
	meta := Meta{
		Gateway:   req.Gateway,
		Domain:    req.Domain,
		Operation: req.Operation,
		Timestamp: start.UTC(),
		Source:    req.Source,
		RequestID: req.RequestID,
		Strict:    true,
	}

	// 1. Tier projection.
	tier, cleanedParams := resolveTier(req.Params)
	req.Params = cleanedParams
	aliasDomain, _ := resolveAlias(req.Domain, req.Operation)
	if !tierAllows(tier, aliasDomain) {
		return errorResponse(meta, start, "INVALID_OPERATION", exitcode.InvalidInput,
			"domain not permitted at this tier", nil, "", nil)
	}
	if req.Domain == "tasks" && req.Operation == "list" && req.Source == SourceMCP {
		if _, set := req.Params["compact"]; !set {
			req.Params["compact"] = true
		}
	}

	// 2. Operation-alias resolution.
	canonicalDomain, canonicalOp := resolveAlias(req.Domain, req.Operation)
	meta.Domain = canonicalDomain
	meta.Operation = canonicalOp

	if canonicalDomain == "nexus" {
		return errorResponse(meta, start, "NOT_IMPLEMENTED", exitcode.GeneralError,
			"nexus is a placeholder domain", nil, "", nil)
	}

	handler := p.registry.Lookup(canonicalDomain, canonicalOp)
	if handler == nil {
		return errorResponse(meta, start, "INVALID_OPERATION", exitcode.InvalidInput,
			"unknown operation "+canonicalDomain+"."+canonicalOp, nil, "",
			[]string{"check the operation matrix for " + canonicalDomain})
	}

	// 3. Parameter validation.
	if err := validateParams(canonicalDomain, canonicalOp, req.Params); err != nil {
		if mp, ok := err.(*ErrMissingParam); ok {
			return errorResponse(meta, start, "VALIDATION_FAILED", exitcode.ValidationError,
				mp.Error(), nil, mp.Fix(), nil)
		}
		return errorResponse(meta, start, "VALIDATION_FAILED", exitcode.ValidationError, err.Error(), nil, "", nil)
	}

	vctx, err := p.buildOperationContext(req, canonicalDomain, canonicalOp)
	if err != nil {
		return errorResponse(meta, start, "FILE_ERROR", exitcode.FileError, err.Error(), nil, "", nil)
	}

	// 4. Verification gate (mutate only).
	if req.Gateway == GatewayMutate {
		gate := verify.Run(vctx)
		if !gate.Passed {
			layer := gate.Layers[gate.BlockedAt]
			code, msg, kind := firstViolation(gate.BlockedAt, layer)
			return errorResponse(meta, start, code, exitcode.ForKind(kind), msg,
				map[string]any{"blockedAt": gate.BlockedAt, "violations": layer.Violations}, "", nil)
		}
	}

	// 5. Audit-start.
	var requestID string
	if p.deps.Audit != nil {
		entry := audit.NewEntry("dispatch.start", string(req.Gateway), canonicalDomain, canonicalOp, string(req.Source), req.RequestID)
		requestID = entry.RequestID
		_ = p.deps.Audit.Append(entry)
	}

	// 6. Handler.
	result, herr := handler(ctx, req, vctx, p.deps)

	// 7. Audit-finish.
	exitC := exitcode.Success
	success := herr == nil
	var errEnv *ErrorEnvelope
	if herr != nil {
		success = false
		errEnv = envelopeFromError(herr)
		exitC = errEnv.ExitCode
	} else if isIdempotent(canonicalDomain, canonicalOp) && result.Partial {
		exitC = exitcode.IdempotentBase
	}

	if p.deps.Audit != nil {
		finish := audit.NewEntry("dispatch.finish", string(req.Gateway), canonicalDomain, canonicalOp, string(req.Source), requestID)
		finish.ExitCode = int(exitC)
		finish.DurationMs = time.Since(start).Milliseconds()
		finish.TaskID = result.AffectedID
		_ = p.deps.Audit.Append(finish)
	}

	meta.DurationMs = time.Since(start).Milliseconds()
	if !success {
		return DispatchResponse{Meta: meta, Success: false, Error: errEnv}
	}
	return DispatchResponse{Meta: meta, Success: true, Data: result.Data, Partial: result.Partial}
}

func firstViolation(layerName string, layer verify.LayerResult) (code string, msg string, kind exitcode.ErrorKind) {
	if len(layer.Violations) == 0 {
		return "VALIDATION_ERROR", layerName + " layer failed", exitcode.KindValidation
	}
	v := layer.Violations[0]
	return string(v.Kind), v.Message, v.Kind
}

func envelopeFromError(err error) *ErrorEnvelope {
	if he, ok := err.(*HandlerError); ok {
		return &ErrorEnvelope{
			Code:         he.Code,
			ExitCode:     exitcode.ForKind(exitcode.ErrorKind(he.Kind)),
			Message:      he.Message,
			Details:      he.Details,
			Fix:          he.Fix,
			Alternatives: he.Alternatives,
		}
	}
	return &ErrorEnvelope{
		Code:     "INTERNAL_ERROR",
		ExitCode: exitcode.GeneralError,
		Message:  err.Error(),
	}
}

func errorResponse(meta Meta, start time.Time, code string, exitC exitcode.Code, msg string, details map[string]any, fix string, alts []string) DispatchResponse {
	meta.DurationMs = time.Since(start).Milliseconds()
	return DispatchResponse{
		Meta:    meta,
		Success: false,
		Error: &ErrorEnvelope{
			Code:         code,
			ExitCode:     exitC,
			Message:      msg,
			Details:      details,
			Fix:          fix,
			Alternatives: alts,
		},
	}
}
