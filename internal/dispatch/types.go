// Package dispatch implements the Dispatch Pipeline: the single place every
// query and mutate operation flows through on its way from an adapter (CLI
// or MCP) to a domain handler and back.
package dispatch

import (
	"time"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

// Gateway is the dispatch entry class: queries never touch the verification
// gate, mutates always do. Both classes get audit start and finish entries.
type Gateway string

const (
	GatewayQuery  Gateway = "query"
	GatewayMutate Gateway = "mutate"
)

// Source identifies which adapter issued the request.
type Source string

const (
	SourceCLI Source = "cli"
	SourceMCP Source = "mcp"
)

// DispatchRequest is the single entry point's input.
type DispatchRequest struct {
	Gateway   Gateway
	Domain    string
	Operation string
	Params    map[string]any
	Source    Source
	RequestID string
}

// ErrorEnvelope is the error half of a DispatchResponse.
type ErrorEnvelope struct {
	Code         string         `json:"code"`
	ExitCode     exitcode.Code  `json:"exitCode"`
	Message      string         `json:"message"`
	Details      map[string]any `json:"details,omitempty"`
	Fix          string         `json:"fix,omitempty"`
	Alternatives []string       `json:"alternatives,omitempty"`
}

// Meta is the envelope's diagnostic header, present on every response.
type Meta struct {
	Gateway    Gateway   `json:"gateway"`
	Domain     string    `json:"domain"`
	Operation  string    `json:"operation"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Source     Source    `json:"source"`
	RequestID  string    `json:"requestId"`
	Strict     bool      `json:"strict"`
}

// DispatchResponse is the uniform envelope returned by both adapters.
type DispatchResponse struct {
	Meta    Meta           `json:"_meta"`
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Partial bool           `json:"partial,omitempty"`
	Error   *ErrorEnvelope `json:"error,omitempty"`
}
