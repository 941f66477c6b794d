package graph

import (
	"testing"

	"github.com/kryptobaseddev/cleo/internal/model"
)

func mkTask(id string, status model.Status, opts ...func(*model.Task)) model.Task {
	task := model.Task{ID: id, Status: status, Priority: model.PriorityMedium, Type: model.TypeTask}
	for _, opt := range opts {
		opt(&task)
	}
	return task
}

func withDepends(ids ...string) func(*model.Task) {
	return func(t *model.Task) { t.Depends = ids }
}
func withParent(id string) func(*model.Task) {
	return func(t *model.Task) { t.ParentID = id }
}
func withLabels(labels ...string) func(*model.Task) {
	return func(t *model.Task) { t.Labels = labels }
}
func withPriority(p model.Priority) func(*model.Task) {
	return func(t *model.Task) { t.Priority = p }
}
func withType(ty model.TaskType) func(*model.Task) {
	return func(t *model.Task) { t.Type = ty }
}

func TestBuildDepGraph(t *testing.T) {
	tasks := []model.Task{
		mkTask("a", model.StatusPending, withLabels("stage:init")),
		mkTask("b", model.StatusPending, withDepends("a", "missing")),
		mkTask("c", model.StatusPending, withDepends("a")),
	}

	g := Build(tasks)
	if len(g.Nodes()) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(g.Nodes()))
	}

	deps := g.DependsOnIDs("b")
	if len(deps) != 2 || deps[0] != "a" || deps[1] != "missing" {
		t.Fatalf("unexpected dependencies for b: %v", deps)
	}

	blocks := g.BlocksIDs("a")
	if len(blocks) != 2 || blocks[0] != "b" || blocks[1] != "c" {
		t.Fatalf("unexpected blockers for a: %v", blocks)
	}

	if g.DependsOnIDs("does-not-exist") != nil {
		t.Fatalf("expected nil depends-on list for unknown task")
	}

	tasks[0].ID = "mutated-a"
	tasks[1].Depends[0] = "ghost"

	if node := g.Nodes()["a"]; node == nil || node.ID != "a" {
		t.Fatalf("expected node 'a' to remain stable after mutating input slice")
	}
	if depends := g.DependsOnIDs("b"); depends[0] != "a" {
		t.Fatalf("expected copied dependency slice for b, got %v", depends)
	}
}

func TestFilterUnblockedOpen_DependencyResolution(t *testing.T) {
	tasks := []model.Task{
		mkTask("closed", model.StatusDone),
		mkTask("open", model.StatusPending),
		mkTask("ok", model.StatusPending, withDepends("closed")),
		mkTask("blocked-by-open", model.StatusPending, withDepends("open")),
		mkTask("blocked-by-missing", model.StatusPending, withDepends("ghost")),
	}

	g := Build(tasks)
	result := FilterUnblockedOpen(tasks, g)

	expected := []string{"ok", "open"}
	if len(result) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, ids(result))
	}
}

func TestFilterUnblockedOpen_ExcludesDoneAndEpic(t *testing.T) {
	tasks := []model.Task{
		mkTask("closed", model.StatusDone),
		mkTask("epic", model.StatusPending, withType(model.TypeEpic)),
		mkTask("task", model.StatusPending, withType(model.TypeTask)),
	}

	g := Build(tasks)
	result := FilterUnblockedOpen(tasks, g)

	if len(result) != 1 || result[0].ID != "task" {
		t.Fatalf("expected only non-epic pending task, got %v", ids(result))
	}
}

func TestFilterUnblockedOpen_SortingWithStageLabelsAndPriority(t *testing.T) {
	tasks := []model.Task{
		mkTask("low-nonstage", model.StatusPending, withPriority(model.PriorityLow), withLabels("bug")),
		mkTask("low-stage", model.StatusPending, withPriority(model.PriorityLow), withLabels("stage:release")),
		mkTask("high-stage", model.StatusPending, withPriority(model.PriorityHigh), withLabels("stage:plan")),
		mkTask("high-nonstage", model.StatusPending, withPriority(model.PriorityHigh), withLabels("chore")),
		mkTask("critical", model.StatusPending, withPriority(model.PriorityCritical)),
	}

	g := Build(tasks)
	result := FilterUnblockedOpen(tasks, g)

	expected := []string{"critical", "high-stage", "high-nonstage", "low-stage", "low-nonstage"}
	if len(result) != len(expected) {
		t.Fatalf("expected %d tasks, got %d", len(expected), len(result))
	}
	for i, id := range expected {
		if result[i].ID != id {
			t.Fatalf("unexpected order at index %d: got %s, want %s", i, result[i].ID, id)
		}
	}
}

func TestFilterUnblockedOpen_NilGraph(t *testing.T) {
	tasks := []model.Task{
		mkTask("open", model.StatusPending),
		mkTask("blocked", model.StatusPending, withDepends("ghost")),
	}

	result := FilterUnblockedOpen(tasks, nil)
	if len(result) != 1 || result[0].ID != "open" {
		t.Fatalf("expected only open task with no deps, got %v", ids(result))
	}
}

func TestAccessorsReturnCopiesForDependencies(t *testing.T) {
	tasks := []model.Task{
		mkTask("a", model.StatusPending, withDepends("b")),
		mkTask("b", model.StatusDone),
	}
	g := Build(tasks)

	deps := g.DependsOnIDs("a")
	deps[0] = "corrupted"
	if g.DependsOnIDs("a")[0] != "b" {
		t.Fatal("DependsOnIDs returned an alias to internal slice")
	}

	blocks := g.BlocksIDs("b")
	blocks[0] = "corrupted"
	if g.BlocksIDs("b")[0] != "a" {
		t.Fatal("BlocksIDs returned an alias to internal slice")
	}

	var nilGraph *DepGraph
	if nilGraph.Nodes() != nil {
		t.Fatal("Nodes on nil graph should return nil")
	}
}

func TestDetectCycleAcrossDependsAndParent(t *testing.T) {
	tasks := []model.Task{
		mkTask("T1", model.StatusPending, withDepends("T2")),
		mkTask("T2", model.StatusPending, withParent("T1")),
	}
	g := Build(tasks)

	_, found := g.DetectCycle("T1")
	if !found {
		t.Fatal("expected cycle across depends+parent edges to be detected")
	}
}

func TestDetectCycleNoneForDAG(t *testing.T) {
	tasks := []model.Task{
		mkTask("T1", model.StatusPending),
		mkTask("T2", model.StatusPending, withDepends("T1")),
		mkTask("T3", model.StatusPending, withDepends("T2")),
	}
	g := Build(tasks)

	if _, found := g.DetectCycle("T3"); found {
		t.Fatal("expected no cycle in a linear chain")
	}
}

func TestCheckDepthRejectsFourthLevel(t *testing.T) {
	tasks := []model.Task{
		mkTask("epic", model.StatusPending, withType(model.TypeEpic)),
		mkTask("task", model.StatusPending, withType(model.TypeTask), withParent("epic")),
		mkTask("sub", model.StatusPending, withType(model.TypeSubtask), withParent("task")),
		mkTask("toodeep", model.StatusPending, withParent("sub")),
	}
	g := Build(tasks)

	if err := g.CheckDepth("sub", 3); err != nil {
		t.Fatalf("depth 2 should be within max depth 3: %v", err)
	}
	if err := g.CheckDepth("toodeep", 3); err == nil {
		t.Fatal("expected depth error for fourth hierarchy level")
	}
}

func TestCheckSiblingLimit(t *testing.T) {
	tasks := []model.Task{
		mkTask("parent", model.StatusPending, withType(model.TypeEpic)),
		mkTask("c1", model.StatusPending, withParent("parent")),
		mkTask("c2", model.StatusPending, withParent("parent")),
	}
	g := Build(tasks)

	if err := g.CheckSiblingLimit("parent", "", 2); err == nil {
		t.Fatal("expected sibling limit error when at capacity")
	}
	if err := g.CheckSiblingLimit("parent", "c1", 2); err != nil {
		t.Fatalf("excluding an existing child should keep it under the limit: %v", err)
	}
	if err := g.CheckSiblingLimit("parent", "", 0); err != nil {
		t.Fatalf("0 means unlimited: %v", err)
	}
}

func ids(tasks []model.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}
