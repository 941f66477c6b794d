// Package graph builds an in-memory DAG over a task set's parentId and
// depends[] edges, and answers cycle, depth, and blocked-status queries
// against it.
package graph

import (
	"sort"
	"strings"

	"github.com/kryptobaseddev/cleo/internal/model"
)

// DepGraph is a directed graph over a task set's depends[] edges, plus the
// parentId hierarchy needed for depth checks.
type DepGraph struct {
	nodes   map[string]*model.Task
	forward map[string][]string // task -> depends on these
	reverse map[string][]string // task -> blocked-by-this these
	parent  map[string]string   // task -> parentId
}

// Build constructs a dependency graph from a slice of tasks. Tasks are
// copied into the graph to avoid aliasing the caller's slice.
func Build(tasks []model.Task) *DepGraph {
	g := &DepGraph{
		nodes:   make(map[string]*model.Task, len(tasks)),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
		parent:  make(map[string]string),
	}

	for i := range tasks {
		g.nodes[tasks[i].ID] = tasks[i].Clone()
	}

	for i := range tasks {
		id := tasks[i].ID
		if p := tasks[i].ParentID; p != "" {
			g.parent[id] = p
		}
		deps := tasks[i].Depends
		if len(deps) == 0 {
			continue
		}
		g.forward[id] = append(g.forward[id], deps...)
		for _, depID := range deps {
			g.reverse[depID] = append(g.reverse[depID], id)
		}
	}

	return g
}

// Nodes returns the node map. Callers must not mutate the returned map or
// task pointers.
func (g *DepGraph) Nodes() map[string]*model.Task {
	if g == nil {
		return nil
	}
	return g.nodes
}

// DependsOnIDs returns a copy of the IDs this task depends on.
func (g *DepGraph) DependsOnIDs(id string) []string { return copyStrings(g.forward, id) }

// BlocksIDs returns a copy of the task IDs blocked by this task.
func (g *DepGraph) BlocksIDs(id string) []string { return copyStrings(g.reverse, id) }

func copyStrings(m map[string][]string, id string) []string {
	if m == nil {
		return nil
	}
	s := m[id]
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// FilterUnblockedOpen returns non-epic tasks whose status is pending and
// whose dependencies all exist and are done. Results are sorted by
// Priority band (critical..low), stage-labeled tasks first, id ascending.
// Sort is stable.
func FilterUnblockedOpen(tasks []model.Task, g *DepGraph) []model.Task {
	var result []model.Task

	for _, task := range tasks {
		if task.Status != model.StatusPending || task.Type == model.TypeEpic {
			continue
		}
		if isBlocked(task, g) {
			continue
		}
		result = append(result, task)
	}

	rank := map[model.Priority]int{
		model.PriorityCritical: 0,
		model.PriorityHigh:     1,
		model.PriorityMedium:   2,
		model.PriorityLow:      3,
	}

	sort.SliceStable(result, func(i, j int) bool {
		if rank[result[i].Priority] != rank[result[j].Priority] {
			return rank[result[i].Priority] < rank[result[j].Priority]
		}
		iStage := hasStageLabel(result[i])
		jStage := hasStageLabel(result[j])
		if iStage != jStage {
			return iStage
		}
		return result[i].ID < result[j].ID
	})

	return result
}

func hasStageLabel(task model.Task) bool {
	for _, label := range task.Labels {
		if strings.HasPrefix(label, "stage:") {
			return true
		}
	}
	return false
}

func isBlocked(task model.Task, g *DepGraph) bool {
	if g == nil {
		return len(task.Depends) > 0
	}
	for _, depID := range task.Depends {
		dep, exists := g.nodes[depID]
		if !exists || dep == nil || dep.Status != model.StatusDone {
			return true
		}
	}
	return false
}
