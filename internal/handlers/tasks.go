package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kryptobaseddev/cleo/internal/dispatch"
	"github.com/kryptobaseddev/cleo/internal/graph"
	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/verify"
)

func registerTasks(r *dispatch.Registry) {
	r.Register("tasks", "add", taskAdd)
	r.Register("tasks", "update", taskUpdate)
	r.Register("tasks", "complete", taskComplete)
	r.Register("tasks", "delete", taskDelete)
	r.Register("tasks", "archive", taskArchive)
	r.Register("tasks", "restore", taskRestore)
	r.Register("tasks", "reopen", taskReopen)
	r.Register("tasks", "reparent", taskReparent)
	r.Register("tasks", "show", taskShow)
	r.Register("tasks", "list", taskList)
	r.Register("tasks", "next", taskNext)
	r.Register("tasks", "find", taskFind)
	r.Register("tasks", "tree", taskTree)
	r.Register("tasks", "blockers", taskBlockers)
	r.Register("tasks", "deps", taskDeps)
	r.Register("tasks", "stats", taskStats)
	r.Register("tasks", "export", taskExport)
	r.Register("tasks", "history", taskHistory)
	r.Register("tasks", "lint", taskLint)
	r.Register("tasks", "batch-validate", taskBatchValidate)
	r.Register("tasks", "exists", taskExists)
	r.Register("tasks", "promote", taskPromote)
	r.Register("tasks", "reorder", taskReorder)
	r.Register("tasks", "relates.add", taskRelatesAdd)
	r.Register("tasks", "start", taskStart)
	r.Register("tasks", "stop", taskStop)
}

func notFound(id string) error {
	return &dispatch.HandlerError{Code: "NOT_FOUND", Kind: "not-found", Message: fmt.Sprintf("task %q not found", id)}
}

func nextTaskID(tasks []model.Task) string {
	max := 0
	for _, t := range tasks {
		n, err := strconv.Atoi(strings.TrimPrefix(t.ID, "T"))
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("T%d", max+1)
}

func findTask(tasks []model.Task, id string) (int, bool) {
	for i := range tasks {
		if tasks[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func taskAdd(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	return result, taskAddImpl(req, deps, &result)
}

func taskAddImpl(req dispatch.DispatchRequest, deps dispatch.Deps, result *dispatch.HandlerResult) error {
	title, _ := req.Params["title"].(string)
	desc, _ := req.Params["description"].(string)
	title, desc = strings.TrimSpace(title), strings.TrimSpace(desc)
	priority := model.PriorityMedium
	if raw, ok := req.Params["priority"]; ok {
		priority = coercePriority(raw)
	}
	taskType := model.TypeTask
	if raw, ok := req.Params["type"].(string); ok && raw != "" {
		taskType = model.TaskType(raw)
	}
	parentID, _ := req.Params["parentId"].(string)
	depends := coerceStringSlice(req.Params["depends"])
	labels := coerceStringSlice(req.Params["labels"])

	now := time.Now().UTC()
	var created model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		id := nextTaskID(tasks)
		created = model.Task{
			ID: id, Title: title, Description: desc,
			Status: model.StatusPending, Priority: priority, Type: taskType,
			Labels: labels, ParentID: parentID, Depends: depends,
			Created: now, Updated: now,
			Verification: model.NewWorkflowGates(),
		}
		return append(tasks, created), nil
	})
	if err != nil {
		return err
	}

	result.Data = created
	result.AffectedID = created.ID
	return nil
}

func taskUpdate(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	var updated model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		if title, ok := req.Params["title"].(string); ok && strings.TrimSpace(title) != "" {
			t.Title = strings.TrimSpace(title)
		}
		if desc, ok := req.Params["description"].(string); ok && strings.TrimSpace(desc) != "" {
			t.Description = strings.TrimSpace(desc)
		}
		if status, ok := req.Params["status"].(string); ok && status != "" {
			t.Status = model.Status(status)
		}
		if raw, ok := req.Params["priority"]; ok {
			t.Priority = coercePriority(raw)
		}
		if rawDepends, ok := req.Params["depends"]; ok {
			t.Depends = coerceStringSlice(rawDepends)
		}
		if parentID, ok := req.Params["parentId"].(string); ok {
			t.ParentID = parentID
		}
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated
	result.AffectedID = updated.ID
	return result, nil
}

func taskComplete(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	alreadyDone := false
	var completed model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		if t.Status == model.StatusDone {
			alreadyDone = true
			completed = t
			return tasks, nil
		}
		now := time.Now().UTC()
		t.Status = model.StatusDone
		t.Updated = now
		t.CompletedAt = &now
		if note, ok := req.Params["note"].(string); ok && note != "" {
			t.Notes = append(t.Notes, model.Note{Text: note, At: now})
		}
		tasks[idx] = t
		completed = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = completed
	result.AffectedID = completed.ID
	result.Partial = alreadyDone // idempotent "already done" outcome
	return result, nil
}

func taskDelete(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		return append(tasks[:idx], tasks[idx+1:]...), nil
	})
	if err != nil {
		return result, err
	}
	result.AffectedID = id
	return result, nil
}

// backupBeforeMutation snapshots the live data files before a mutating-and-
// risky operation (migrate, restore, archive) per spec.md §3. Engines that
// don't support BackupNow (e.g. a bare in-memory test double) are left
// untouched rather than failing the operation.
func backupBeforeMutation(deps dispatch.Deps) error {
	backer, ok := deps.Store.(interface {
		BackupNow(time.Time) (string, error)
	})
	if !ok {
		return nil
	}
	_, err := backer.BackupNow(time.Now().UTC())
	return err
}

func taskArchive(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	reason, _ := req.Params["reason"].(string)

	archive, err := deps.Store.LoadArchive()
	if err != nil {
		return result, err
	}
	for _, e := range archive {
		if e.ID == id {
			result.AffectedID = id
			result.Partial = true // idempotent: already archived
			result.Data = e
			return result, nil
		}
	}

	if err := backupBeforeMutation(deps); err != nil {
		return result, err
	}

	var archivedTask model.Task
	err = withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.Status = model.StatusArchived
		t.Updated = time.Now().UTC()
		archivedTask = t
		return append(tasks[:idx], tasks[idx+1:]...), nil
	})
	if err != nil {
		return result, err
	}

	archive = append(archive, model.ArchiveEntry{
		Task:    archivedTask,
		Archive: model.ArchiveMeta{ArchivedAt: time.Now().UTC(), Reason: reason},
	})
	if err := deps.Store.SaveArchive(archive); err != nil {
		return result, err
	}

	result.Data = archivedTask
	result.AffectedID = id
	return result, nil
}

func taskRestore(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)

	archive, err := deps.Store.LoadArchive()
	if err != nil {
		return result, err
	}
	idx := -1
	for i, e := range archive {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return result, notFound(id)
	}
	if err := backupBeforeMutation(deps); err != nil {
		return result, err
	}
	restored := archive[idx].Task
	restored.Status = model.StatusPending
	restored.Updated = time.Now().UTC()
	archive = append(archive[:idx], archive[idx+1:]...)

	if err := deps.Store.SaveArchive(archive); err != nil {
		return result, err
	}
	err = withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		return append(tasks, restored), nil
	})
	if err != nil {
		return result, err
	}

	result.Data = restored
	result.AffectedID = id
	return result, nil
}

func taskReopen(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	var reopened model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.Status = model.StatusPending
		t.CompletedAt = nil
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		reopened = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = reopened
	result.AffectedID = reopened.ID
	return result, nil
}

func taskReparent(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	parentID, _ := req.Params["parentId"].(string)
	var reparented model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		t.ParentID = parentID
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		reparented = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = reparented
	result.AffectedID = reparented.ID
	return result, nil
}

func taskShow(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id, _ := req.Params["id"].(string)
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	idx, ok := findTask(tasks, id)
	if !ok {
		return result, notFound(id)
	}
	result.Data = tasks[idx]
	return result, nil
}

func taskList(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	if compact, _ := req.Params["compact"].(bool); compact {
		result.Data = compactTasks(tasks)
		return result, nil
	}
	result.Data = tasks
	return result, nil
}

func taskNext(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	g := graph.Build(tasks)
	open := graph.FilterUnblockedOpen(tasks, g)
	if len(open) == 0 {
		result.Data = nil
		return result, nil
	}
	result.Data = open[0]
	return result, nil
}

type compactTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func compactTasks(tasks []model.Task) []compactTask {
	out := make([]compactTask, len(tasks))
	for i, t := range tasks {
		out[i] = compactTask{ID: t.ID, Title: t.Title, Status: string(t.Status), Priority: string(t.Priority)}
	}
	return out
}

func coercePriority(v any) model.Priority {
	switch p := v.(type) {
	case string:
		if model.ValidPriority(model.Priority(p)) {
			return model.Priority(p)
		}
	case int:
		return model.NormalizePriority(p)
	case float64:
		return model.NormalizePriority(int(p))
	}
	return model.PriorityMedium
}

func coerceStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// withTasksLock loads the task list, runs fn, and saves the result back,
// all under the store's "tasks" resource lock so concurrent mutators
// serialize.
func withTasksLock(deps dispatch.Deps, fn func([]model.Task) ([]model.Task, error)) error {
	return deps.Store.Lock("tasks", func() error {
		tasks, err := deps.Store.LoadTasks()
		if err != nil {
			return err
		}
		updated, err := fn(tasks)
		if err != nil {
			return err
		}
		return deps.Store.SaveTasks(updated)
	})
}

func taskFind(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	query := strings.ToLower(stringParam(req, "query"))
	status, _ := req.Params["status"].(string)
	priority, _ := req.Params["priority"].(string)
	taskType, _ := req.Params["type"].(string)
	label, _ := req.Params["label"].(string)

	matches := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if query != "" && !strings.Contains(strings.ToLower(t.Title), query) && !strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		if priority != "" && string(t.Priority) != priority {
			continue
		}
		if taskType != "" && string(t.Type) != taskType {
			continue
		}
		if label != "" && !containsString(t.Labels, label) {
			continue
		}
		matches = append(matches, t)
	}

	if compact, _ := req.Params["compact"].(bool); compact {
		result.Data = compactTasks(matches)
		return result, nil
	}
	result.Data = matches
	return result, nil
}

// taskNode is one level of the parent/child hierarchy returned by tasks.tree.
type taskNode struct {
	Task     model.Task `json:"task"`
	Children []taskNode `json:"children,omitempty"`
}

func buildTree(tasks []model.Task, rootID string) []taskNode {
	byParent := make(map[string][]model.Task)
	for _, t := range tasks {
		byParent[t.ParentID] = append(byParent[t.ParentID], t)
	}
	var walk func(parentID string) []taskNode
	walk = func(parentID string) []taskNode {
		children := byParent[parentID]
		if len(children) == 0 {
			return nil
		}
		nodes := make([]taskNode, len(children))
		for i, c := range children {
			nodes[i] = taskNode{Task: c, Children: walk(c.ID)}
		}
		return nodes
	}
	if rootID == "" {
		return walk("")
	}
	for _, t := range tasks {
		if t.ID == rootID {
			return []taskNode{{Task: t, Children: walk(t.ID)}}
		}
	}
	return nil
}

func taskTree(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	rootID := stringParam(req, "id")
	if rootID != "" {
		if _, ok := findTask(tasks, rootID); !ok {
			return result, notFound(rootID)
		}
	}
	result.Data = buildTree(tasks, rootID)
	return result, nil
}

func taskBlockers(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	idx, ok := findTask(tasks, id)
	if !ok {
		return result, notFound(id)
	}
	g := graph.Build(tasks)
	var blockers []model.Task
	for _, depID := range g.DependsOnIDs(id) {
		depIdx, ok := findTask(tasks, depID)
		if !ok {
			continue
		}
		dep := tasks[depIdx]
		if dep.Status != model.StatusDone && dep.Status != model.StatusCancelled {
			blockers = append(blockers, dep)
		}
	}
	result.Data = map[string]any{"id": tasks[idx].ID, "blockers": blockers}
	return result, nil
}

func taskDeps(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	if _, ok := findTask(tasks, id); !ok {
		return result, notFound(id)
	}
	g := graph.Build(tasks)

	type depEntry struct {
		Task     model.Task `json:"task"`
		Resolved bool       `json:"resolved"`
	}
	forward := make([]depEntry, 0)
	for _, depID := range g.DependsOnIDs(id) {
		depIdx, ok := findTask(tasks, depID)
		if !ok {
			continue
		}
		dep := tasks[depIdx]
		forward = append(forward, depEntry{Task: dep, Resolved: dep.Status == model.StatusDone || dep.Status == model.StatusCancelled})
	}
	var blocks []model.Task
	for _, blockedID := range g.BlocksIDs(id) {
		if blockedIdx, ok := findTask(tasks, blockedID); ok {
			blocks = append(blocks, tasks[blockedIdx])
		}
	}
	result.Data = map[string]any{"id": id, "depends": forward, "blocks": blocks}
	return result, nil
}

func taskStats(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	archive, err := deps.Store.LoadArchive()
	if err != nil {
		return result, err
	}

	byStatus := make(map[string]int)
	byPriority := make(map[string]int)
	byType := make(map[string]int)
	for _, t := range tasks {
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		byType[string(t.Type)]++
	}
	result.Data = map[string]any{
		"total":      len(tasks),
		"archived":   len(archive),
		"byStatus":   byStatus,
		"byPriority": byPriority,
		"byType":     byType,
	}
	return result, nil
}

func taskExport(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	out := map[string]any{"tasks": tasks}
	if includeArchive, _ := req.Params["includeArchive"].(bool); includeArchive {
		archive, err := deps.Store.LoadArchive()
		if err != nil {
			return result, err
		}
		out["archive"] = archive
	}
	result.Data = out
	return result, nil
}

func taskHistory(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	if deps.Audit == nil {
		result.Data = []model.AuditEntry{}
		return result, nil
	}
	entries, err := deps.Audit.All()
	if err != nil {
		return result, err
	}
	filtered := make([]model.AuditEntry, 0)
	for _, e := range entries {
		if e.TaskID == id {
			filtered = append(filtered, e)
		}
	}
	result.Data = filtered
	return result, nil
}

// lintFinding is one structural issue reported by tasks.lint.
type lintFinding struct {
	TaskID string `json:"taskId"`
	Issue  string `json:"issue"`
}

func taskLint(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	findings := make([]lintFinding, 0)
	g := graph.Build(tasks)
	for _, t := range tasks {
		if t.ParentID != "" {
			if _, ok := findTask(tasks, t.ParentID); !ok {
				findings = append(findings, lintFinding{TaskID: t.ID, Issue: fmt.Sprintf("parentId %q does not exist", t.ParentID)})
			}
		}
		for _, depID := range t.Depends {
			if _, ok := findTask(tasks, depID); !ok {
				findings = append(findings, lintFinding{TaskID: t.ID, Issue: fmt.Sprintf("depends %q does not exist", depID)})
			}
		}
		if t.Title == "" {
			findings = append(findings, lintFinding{TaskID: t.ID, Issue: "title is empty"})
		}
		if !model.ValidPriority(t.Priority) {
			findings = append(findings, lintFinding{TaskID: t.ID, Issue: fmt.Sprintf("priority %q is not a recognized band", t.Priority)})
		}
		if _, cyclic := g.DetectCycle(t.ID); cyclic {
			findings = append(findings, lintFinding{TaskID: t.ID, Issue: "participates in a dependency or parent cycle"})
		}
	}
	result.Data = findings
	result.Partial = len(findings) > 0
	return result, nil
}

// batchValidateItem mirrors tasks.add's acceptable fields for a dry-run
// validation pass over a batch of candidate tasks.
type batchValidateItem struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

func taskBatchValidate(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	rawItems, _ := req.Params["items"].([]any)

	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}

	results := make([]batchValidateItem, len(rawItems))
	anyFailed := false
	for i, raw := range rawItems {
		item, _ := raw.(map[string]any)
		var errs []string
		title, _ := item["title"].(string)
		if title == "" {
			errs = append(errs, "title is required")
		}
		if raw, ok := item["priority"]; ok {
			p := coercePriority(raw)
			if !model.ValidPriority(p) {
				errs = append(errs, "priority is not a recognized band")
			}
		}
		if parentID, ok := item["parentId"].(string); ok && parentID != "" {
			if _, ok := findTask(tasks, parentID); !ok {
				errs = append(errs, fmt.Sprintf("parentId %q does not exist", parentID))
			}
		}
		for _, depID := range coerceStringSlice(item["depends"]) {
			if _, ok := findTask(tasks, depID); !ok {
				errs = append(errs, fmt.Sprintf("depends %q does not exist", depID))
			}
		}
		results[i] = batchValidateItem{OK: len(errs) == 0, Errors: errs}
		if len(errs) > 0 {
			anyFailed = true
		}
	}
	result.Data = results
	result.Partial = anyFailed
	return result, nil
}

func taskExists(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	tasks, err := deps.Store.LoadTasks()
	if err != nil {
		return result, err
	}
	_, exists := findTask(tasks, id)
	result.Data = map[string]any{"id": id, "exists": exists}
	return result, nil
}

// promotionOrder is the fixed subtask -> task -> epic ladder tasks.promote
// climbs one rung at a time.
var promotionOrder = []model.TaskType{model.TypeSubtask, model.TypeTask, model.TypeEpic}

func taskPromote(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	var promoted model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		pos := -1
		for i, ty := range promotionOrder {
			if ty == t.Type {
				pos = i
				break
			}
		}
		if pos < 0 || pos == len(promotionOrder)-1 {
			return nil, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation",
				Message: fmt.Sprintf("task %q is already at the top of the type ladder", id)}
		}
		t.Type = promotionOrder[pos+1]
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		promoted = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = promoted
	result.AffectedID = promoted.ID
	return result, nil
}

func taskReorder(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	ids := coerceStringSlice(req.Params["ids"])
	if len(ids) == 0 {
		return result, &dispatch.HandlerError{Code: "VALIDATION_ERROR", Kind: "validation", Message: "reorder requires a non-empty params.ids"}
	}

	var reordered []model.Task
	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		for _, id := range ids {
			if _, ok := findTask(tasks, id); !ok {
				return nil, notFound(id)
			}
		}
		now := time.Now().UTC()
		for seq, id := range ids {
			idx, _ := findTask(tasks, id)
			t := tasks[idx]
			t.Order = seq
			t.Updated = now
			tasks[idx] = t
			reordered = append(reordered, t)
		}
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = reordered
	return result, nil
}

func taskRelatesAdd(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	relatedID := stringParam(req, "relatedId")
	var updated model.Task
	alreadyRelated := false

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		if _, ok := findTask(tasks, relatedID); !ok {
			return nil, notFound(relatedID)
		}
		t := tasks[idx]
		if containsString(t.Relates, relatedID) {
			alreadyRelated = true
			updated = t
			return tasks, nil
		}
		t.Relates = append(t.Relates, relatedID)
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		updated = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = updated
	result.AffectedID = updated.ID
	result.Partial = alreadyRelated
	return result, nil
}

func taskStart(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	alreadyActive := false
	var started model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		if t.Status == model.StatusActive {
			alreadyActive = true
			started = t
			return tasks, nil
		}
		t.Status = model.StatusActive
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		started = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = started
	result.AffectedID = started.ID
	result.Partial = alreadyActive
	return result, nil
}

func taskStop(ctx context.Context, req dispatch.DispatchRequest, vctx verify.OperationContext, deps dispatch.Deps) (dispatch.HandlerResult, error) {
	var result dispatch.HandlerResult
	id := stringParam(req, "id")
	alreadyStopped := false
	var stopped model.Task

	err := withTasksLock(deps, func(tasks []model.Task) ([]model.Task, error) {
		idx, ok := findTask(tasks, id)
		if !ok {
			return nil, notFound(id)
		}
		t := tasks[idx]
		if t.Status != model.StatusActive {
			alreadyStopped = true
			stopped = t
			return tasks, nil
		}
		t.Status = model.StatusPending
		t.Updated = time.Now().UTC()
		tasks[idx] = t
		stopped = t
		return tasks, nil
	})
	if err != nil {
		return result, err
	}
	result.Data = stopped
	result.AffectedID = stopped.ID
	result.Partial = alreadyStopped
	return result, nil
}

func stringParam(req dispatch.DispatchRequest, key string) string {
	v, _ := req.Params[key].(string)
	return v
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
