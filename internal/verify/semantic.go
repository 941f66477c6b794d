package verify

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
)

var sessionScopePattern = regexp.MustCompile(`^[a-z]+:.+$`)

// SemanticLayer checks cross-field meaning within a single operation's
// params: title must differ from description, a task cannot depend on
// itself, session scope must be "prefix:rest", and no timestamp may be in
// the future. Completing a task without notes is a warning, not a failure,
// so it never produces a Violation here.
func SemanticLayer(ctx OperationContext) LayerResult {
	var violations []Violation

	title, hasTitle := stringParam(ctx.Params, "title")
	desc, hasDesc := stringParam(ctx.Params, "description")
	trimmedTitle, trimmedDesc := strings.TrimSpace(title), strings.TrimSpace(desc)
	if hasTitle && hasDesc && trimmedTitle != "" && trimmedTitle == trimmedDesc {
		violations = append(violations, Violation{
			Field: "description", Kind: exitcode.KindValidation,
			Message: "description must differ from title",
		})
	}

	if id, ok := stringParam(ctx.Params, "id"); ok {
		if deps, ok := stringSliceParam(ctx.Params, "depends"); ok {
			for _, dep := range deps {
				if dep == id {
					violations = append(violations, Violation{
						Field: "depends", Kind: exitcode.KindValidation,
						Message: "a task cannot depend on itself",
					})
					break
				}
			}
		}
		if parentID, ok := stringParam(ctx.Params, "parentId"); ok && parentID == id {
			violations = append(violations, Violation{
				Field: "parentId", Kind: exitcode.KindValidation,
				Message: "a task cannot be its own parent",
			})
		}
	}

	if scope, ok := stringParam(ctx.Params, "scope"); ok && scope != "" {
		if !sessionScopePattern.MatchString(scope) {
			violations = append(violations, Violation{
				Field: "scope", Kind: exitcode.KindValidation,
				Message: fmt.Sprintf("scope %q must match ^[a-z]+:.+$", scope),
			})
		}
	}

	now := time.Now().UTC()
	for _, field := range []string{"created", "updated", "date"} {
		if v, ok := stringParam(ctx.Params, field); ok {
			if ts, err := time.Parse(time.RFC3339, v); err == nil && ts.After(now) {
				violations = append(violations, Violation{
					Field: field, Kind: exitcode.KindValidation,
					Message: fmt.Sprintf("%s cannot be in the future", field),
				})
			}
		}
	}

	if len(violations) > 0 {
		return LayerResult{Status: Failed, Violations: violations}
	}
	return LayerResult{Status: Passed}
}

func stringSliceParam(params map[string]any, key string) ([]string, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
