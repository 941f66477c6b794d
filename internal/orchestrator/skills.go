// Package orchestrator implements the Orchestration / Skill Dispatcher (L4):
// stateless skill selection for a task, spawn-prompt assembly, and
// PID-based agent process spawning.
package orchestrator

import (
	"strings"

	"github.com/kryptobaseddev/cleo/internal/model"
)

// categoryTaxonomy is the fixed set of skill categories keyword matching
// resolves against.
var categoryTaxonomy = []string{
	"research", "execution", "planning", "documentation", "testing",
	"validation", "specification", "bash-library", "workflow", "orchestration",
}

// categoryKeywords are the title/description substrings that resolve to
// each category when no explicit label match is found.
var categoryKeywords = map[string][]string{
	"research":      {"research", "investigate", "explore", "survey"},
	"execution":     {"implement", "build", "write", "add"},
	"planning":      {"plan", "design", "scope"},
	"documentation": {"document", "docs", "readme"},
	"testing":       {"test", "verify", "qa"},
	"validation":    {"validate", "review", "audit"},
	"specification": {"spec", "specification", "requirements"},
	"bash-library":  {"script", "shell", "bash"},
	"workflow":      {"workflow", "pipeline", "stage"},
	"orchestration": {"orchestrate", "coordinate", "dispatch"},
}

// skillByCategory maps a resolved category to its default skill name.
var skillByCategory = map[string]string{
	"research":      "ct-researcher",
	"execution":     "ct-task-executor",
	"planning":      "ct-planner",
	"documentation": "ct-documenter",
	"testing":       "ct-tester",
	"validation":    "ct-validator",
	"specification": "ct-spec-writer",
	"bash-library":  "ct-bash-librarian",
	"workflow":      "ct-workflow-runner",
	"orchestration": "ct-orchestrator",
}

// typeCategoryFallback maps a task type to a category when no label or
// keyword match is found.
var typeCategoryFallback = map[model.TaskType]string{
	model.TypeEpic:    "planning",
	model.TypeTask:    "execution",
	model.TypeSubtask: "execution",
}

// defaultSkill is step 5 of the priority chain: the fallback when nothing
// else matched.
const defaultSkill = "ct-task-executor"

// labelSkillOverrides maps an explicit task label directly to a skill name,
// the highest-priority match.
var labelSkillOverrides = map[string]string{
	"skill:researcher": "ct-researcher",
	"skill:planner":    "ct-planner",
	"skill:documenter":  "ct-documenter",
	"skill:tester":      "ct-tester",
	"skill:validator":   "ct-validator",
}

// skillTriggers are trigger labels a skill itself declares, matched against
// the task's labels after the category taxonomy and before the type fallback.
var skillTriggers = map[string]string{
	"bug-fix":     "ct-task-executor",
	"hotfix":      "ct-task-executor",
	"refactor":    "ct-task-executor",
	"exploration": "ct-researcher",
}

// SelectSkill resolves a protocol (skill) name for task in priority order:
// (1) explicit label override, (2) title/description keyword match against
// the category taxonomy, (3) skill-declared label triggers, (4)
// task-type-to-category fallback, (5) the default skill. Dispatch is
// stateless and has no side effects.
func SelectSkill(task model.Task) string {
	for _, label := range task.Labels {
		if skill, ok := labelSkillOverrides[label]; ok {
			return skill
		}
	}

	haystack := strings.ToLower(task.Title + " " + task.Description)
	for _, category := range categoryTaxonomy {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(haystack, kw) {
				return skillByCategory[category]
			}
		}
	}

	for _, label := range task.Labels {
		if skill, ok := skillTriggers[label]; ok {
			return skill
		}
	}

	if category, ok := typeCategoryFallback[task.Type]; ok {
		if skill, ok := skillByCategory[category]; ok {
			return skill
		}
	}

	return defaultSkill
}
