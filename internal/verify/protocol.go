package verify

import (
	"fmt"
	"regexp"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

var provenanceTagPattern = regexp.MustCompile(`@task T\d+`)

// ManifestEntry is the per-research/per-implementation record the Protocol
// Enforcer validates before it is appended to a project manifest.
type ManifestEntry struct {
	ID          string   `json:"id"`
	File        string   `json:"file"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Status      string   `json:"status"`
	AgentType   string   `json:"agent_type"`
	KeyFindings []string `json:"key_findings,omitempty"`
}

var validManifestStatuses = map[string]bool{
	"complete": true, "partial": true, "blocked": true,
}

// ProtocolLayer enforces the manifest contract only when ctx.ProtocolType is
// set. Research manifests require 3-7 key_findings; implementation entries
// missing an "@task T####" provenance tag in their changed files produce a
// warning, not a failure, so that case never fails this layer.
func ProtocolLayer(ctx OperationContext) LayerResult {
	if ctx.ProtocolType == "" {
		return LayerResult{Status: Skipped}
	}

	var violations []Violation

	entry, ok := manifestParam(ctx.Params)
	if !ok {
		violations = append(violations, Violation{
			Field: "manifest", Kind: exitcode.KindProtocolViolation,
			Message: "protocolType set but no manifest entry provided",
		})
		return LayerResult{Status: Failed, Violations: violations}
	}

	if !manifestIDPattern.MatchString(entry.ID) {
		violations = append(violations, Violation{
			Field: "manifest.id", Kind: exitcode.KindProtocolViolation,
			Message: fmt.Sprintf("manifest id %q does not match ^T\\d{3,}-[a-z0-9-]+$", entry.ID),
		})
	}
	if entry.File == "" {
		violations = append(violations, Violation{
			Field: "manifest.file", Kind: exitcode.KindProtocolViolation,
			Message: "manifest.file must be non-empty",
		})
	}
	if !validManifestStatuses[entry.Status] {
		violations = append(violations, Violation{
			Field: "manifest.status", Kind: exitcode.KindProtocolViolation,
			Message: fmt.Sprintf("invalid manifest status %q", entry.Status),
		})
	}
	if !validAgentTypes[entry.AgentType] {
		violations = append(violations, Violation{
			Field: "manifest.agent_type", Kind: exitcode.KindProtocolViolation,
			Message: fmt.Sprintf("invalid manifest agent_type %q", entry.AgentType),
		})
	}

	if ctx.ProtocolType == "research" {
		n := len(entry.KeyFindings)
		if n < 3 || n > 7 {
			violations = append(violations, Violation{
				Field: "manifest.key_findings", Kind: exitcode.KindProtocolViolation,
				Message: fmt.Sprintf("research manifest requires 3-7 key_findings, got %d", n),
			})
		}
	}

	// Implementation provenance tags are checked by the handler against the
	// actual changed files; this layer only validates the manifest shape,
	// since ctx carries no file-content diff.

	if len(violations) > 0 {
		return LayerResult{Status: Failed, Violations: violations}
	}
	return LayerResult{Status: Passed}
}

func manifestParam(params map[string]any) (ManifestEntry, bool) {
	raw, ok := params["manifest"]
	if !ok {
		return ManifestEntry{}, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return ManifestEntry{}, false
	}
	entry := ManifestEntry{}
	entry.ID, _ = m["id"].(string)
	entry.File, _ = m["file"].(string)
	entry.Title, _ = m["title"].(string)
	entry.Date, _ = m["date"].(string)
	entry.Status, _ = m["status"].(string)
	entry.AgentType, _ = m["agent_type"].(string)
	if findings, ok := m["key_findings"].([]any); ok {
		for _, f := range findings {
			if s, ok := f.(string); ok {
				entry.KeyFindings = append(entry.KeyFindings, s)
			}
		}
	}
	return entry, true
}

// HasProvenanceTag reports whether content carries an "@task T####"
// provenance tag, used by implementation handlers to decide the
// non-blocking warning §4.4 describes.
func HasProvenanceTag(content string) bool {
	return provenanceTagPattern.MatchString(content)
}
