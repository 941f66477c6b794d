package verify

import (
	"fmt"

	"github.com/kryptobaseddev/cleo/internal/exitcode"
	"github.com/kryptobaseddev/cleo/internal/model"
)

// operationsRequiringID names the operations that require an existing taskId
// to resolve against the current task set.
var operationsRequiringID = map[string]bool{
	"update":   true,
	"complete": true,
	"delete":   true,
	"cancel":   true,
	"reopen":   true,
}

// ReferentialLayer checks that ids named in params actually exist in the
// current task set, that hierarchy operations stay within the configured
// depth and sibling limits, and that operations which require an existing
// taskId were given one.
func ReferentialLayer(ctx OperationContext) LayerResult {
	var violations []Violation

	ids := make(map[string]bool, len(ctx.Tasks))
	for _, t := range ctx.Tasks {
		ids[t.ID] = true
	}

	if operationsRequiringID[ctx.Operation] {
		id, ok := stringParam(ctx.Params, "id")
		if !ok || id == "" {
			violations = append(violations, Violation{
				Field: "id", Kind: exitcode.KindValidation,
				Message: fmt.Sprintf("operation %q requires an existing id", ctx.Operation),
			})
		} else if !ids[id] {
			violations = append(violations, Violation{
				Field: "id", Kind: exitcode.KindNotFound,
				Message: fmt.Sprintf("task %q not found", id),
			})
		}
	}

	if parentID, ok := stringParam(ctx.Params, "parentId"); ok && parentID != "" && !ids[parentID] {
		violations = append(violations, Violation{
			Field: "parentId", Kind: exitcode.KindNotFound,
			Message: fmt.Sprintf("parent task %q not found", parentID),
		})
	}

	if deps, ok := stringSliceParam(ctx.Params, "depends"); ok {
		for _, dep := range deps {
			if !ids[dep] {
				violations = append(violations, Violation{
					Field: "depends", Kind: exitcode.KindNotFound,
					Message: fmt.Sprintf("dependency %q not found", dep),
				})
			}
		}
	}

	if len(violations) > 0 {
		return LayerResult{Status: Failed, Violations: violations}
	}

	snapshot := ctx
	if id, ok := stringParam(ctx.Params, "id"); ok && id != "" {
		if deps, ok := stringSliceParam(ctx.Params, "depends"); ok {
			snapshot.Tasks = append([]model.Task(nil), ctx.Tasks...)
			for i := range snapshot.Tasks {
				if snapshot.Tasks[i].ID == id {
					snapshot.Tasks[i].Depends = deps
				}
			}
		}
	}
	g := buildGraph(snapshot)
	id, hasID := stringParam(ctx.Params, "id")
	parentID, hasParent := stringParam(ctx.Params, "parentId")

	if hasParent && parentID != "" {
		maxDepth := ctx.Config.MaxDepth
		if err := g.CheckDepth(parentID, maxDepth-1); err != nil {
			violations = append(violations, Violation{
				Field: "parentId", Kind: exitcode.KindValidation,
				Message: err.Error(),
			})
		}
		exclude := ""
		if hasID {
			exclude = id
		}
		if err := g.CheckSiblingLimit(parentID, exclude, ctx.Config.MaxSiblings); err != nil {
			violations = append(violations, Violation{
				Field: "parentId", Kind: exitcode.KindValidation,
				Message: err.Error(),
			})
		}
	}

	if hasID && id != "" {
		if cycle, found := g.DetectCycle(id); found {
			violations = append(violations, Violation{
				Field: "depends", Kind: exitcode.KindCircularReference,
				Message: fmt.Sprintf("cycle detected: %v", cycle),
			})
		}
	}

	if len(violations) > 0 {
		return LayerResult{Status: Failed, Violations: violations}
	}
	return LayerResult{Status: Passed}
}
