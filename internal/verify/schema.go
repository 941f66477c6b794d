package verify

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

var (
	taskIDPattern     = regexp.MustCompile(`^T[0-9]+$`)
	manifestIDPattern = regexp.MustCompile(`^T\d{3,}-[a-z0-9-]+$`)
)

var validStatuses = map[string]bool{
	"pending": true, "active": true, "blocked": true, "done": true, "cancelled": true, "archived": true,
}
var validPriorities = map[string]bool{
	"critical": true, "high": true, "medium": true, "low": true,
}
var validAgentTypes = map[string]bool{
	"research": true, "implementation": true, "testing": true, "validation": true,
}

// SchemaLayer checks types, enums, regexes, lengths, and numeric ranges of
// the operation's params. A priority passes as one of the named bands or as
// a number from 1 to 9; the number is not converted here.
func SchemaLayer(ctx OperationContext) LayerResult {
	var violations []Violation

	if id, ok := stringParam(ctx.Params, "id"); ok && id != "" {
		if !taskIDPattern.MatchString(id) && !manifestIDPattern.MatchString(id) {
			violations = append(violations, Violation{
				Field: "id", Kind: exitcode.KindValidation,
				Message: fmt.Sprintf("id %q does not match ^T[0-9]+$", id),
			})
		}
	}

	if title, ok := stringParam(ctx.Params, "title"); ok {
		if len(title) < 5 || len(title) > 100 {
			violations = append(violations, Violation{
				Field: "title", Kind: exitcode.KindValidation,
				Message: "title must be 5-100 characters",
			})
		}
	}

	if desc, ok := stringParam(ctx.Params, "description"); ok {
		if len(desc) < 10 || len(desc) > 1000 {
			violations = append(violations, Violation{
				Field: "description", Kind: exitcode.KindValidation,
				Message: "description must be 10-1000 characters",
			})
		}
	}

	if status, ok := stringParam(ctx.Params, "status"); ok && !validStatuses[status] {
		violations = append(violations, Violation{
			Field: "status", Kind: exitcode.KindValidation,
			Message: fmt.Sprintf("invalid status %q", status),
		})
	}

	if priority, ok := ctx.Params["priority"]; ok {
		if !normalizesToValidPriority(priority) {
			violations = append(violations, Violation{
				Field: "priority", Kind: exitcode.KindValidation,
				Message: fmt.Sprintf("invalid priority %v", priority),
			})
		}
	}

	if agentType, ok := stringParam(ctx.Params, "agent_type"); ok && !validAgentTypes[agentType] {
		violations = append(violations, Violation{
			Field: "agent_type", Kind: exitcode.KindValidation,
			Message: fmt.Sprintf("invalid agent_type %q", agentType),
		})
	}

	for _, field := range []string{"created", "updated", "date"} {
		if v, ok := stringParam(ctx.Params, field); ok {
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				violations = append(violations, Violation{
					Field: field, Kind: exitcode.KindValidation,
					Message: fmt.Sprintf("%s must be ISO-8601, got %q", field, v),
				})
			}
		}
	}

	if len(violations) > 0 {
		return LayerResult{Status: Failed, Violations: violations}
	}
	return LayerResult{Status: Passed}
}

func normalizesToValidPriority(v any) bool {
	switch p := v.(type) {
	case string:
		return validPriorities[p]
	case int:
		return p >= 1 && p <= 9
	case float64:
		return p >= 1 && p <= 9
	default:
		return false
	}
}

func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
