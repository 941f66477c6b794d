package orchestrator

import (
	"fmt"
	"regexp"

	"github.com/kryptobaseddev/cleo/internal/model"
)

// tokenPattern matches a {{TOKEN}} placeholder in a skill template.
var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// subagentProtocolHeader is prepended to every assembled prompt, ahead of
// the skill's own template text.
const subagentProtocolHeader = "You are operating under the shared subagent protocol: report status via the dispatch pipeline, never modify files outside your assigned task scope, and stop and report if a gate blocks you.\n\n"

// TokenResolution reports whether every {{TOKEN}} in a template resolved.
type TokenResolution struct {
	FullyResolved    bool     `json:"fullyResolved"`
	UnresolvedCount  int      `json:"unresolvedCount"`
	UnresolvedTokens []string `json:"unresolvedTokens,omitempty"`
}

// SpawnContext is the merged token source a spawn-prompt is assembled from:
// task fields, session fields, and skill-specific defaults, in that
// precedence order (a caller-supplied default never overrides a task or
// session field of the same name).
type SpawnContext struct {
	Task     model.Task
	Session  *model.Session
	Defaults map[string]string
}

// SpawnPrompt is skill_prepare_spawn's output. Prompt is the only field a
// caller must use; every other field is diagnostic.
type SpawnPrompt struct {
	Skill            string          `json:"skill"`
	Path             string          `json:"path"`
	TaskID           string          `json:"taskId"`
	TokenBudget      int             `json:"tokenBudget"`
	Model            string          `json:"model"`
	Tier             string          `json:"tier"`
	References       []string        `json:"references,omitempty"`
	SpawnContext     map[string]string `json:"spawnContext"`
	TokenResolution  TokenResolution `json:"tokenResolution"`
	Prompt           string          `json:"prompt"`
}

// SkillMetadata is the subset of a skill's definition needed to assemble a
// spawn prompt. The skill template text itself is an external collaborator
// (embedded skill content is explicitly out of scope); callers load it and
// pass it in as Template.
type SkillMetadata struct {
	Name        string
	Path        string
	Template    string
	TokenBudget int
	Model       string
	Tier        string
	References  []string
}

// PrepareSpawn assembles a spawn prompt for skill against ctx: it merges the
// token context, substitutes every {{TOKEN}}, prepends the shared
// subagent-protocol header, and reports which tokens (if any) stayed
// unresolved. An unresolved token is a warning, never a failure: the prompt
// is still returned with the placeholder left in place.
func PrepareSpawn(skill SkillMetadata, ctx SpawnContext) SpawnPrompt {
	merged := mergeTokenContext(ctx)

	var unresolved []string
	body := tokenPattern.ReplaceAllStringFunc(skill.Template, func(match string) string {
		key := tokenPattern.FindStringSubmatch(match)[1]
		if val, ok := merged[key]; ok {
			return val
		}
		unresolved = append(unresolved, key)
		return match
	})

	prompt := subagentProtocolHeader + body

	return SpawnPrompt{
		Skill:        skill.Name,
		Path:         skill.Path,
		TaskID:       ctx.Task.ID,
		TokenBudget:  skill.TokenBudget,
		Model:        skill.Model,
		Tier:         skill.Tier,
		References:   skill.References,
		SpawnContext: merged,
		TokenResolution: TokenResolution{
			FullyResolved:    len(unresolved) == 0,
			UnresolvedCount:  len(unresolved),
			UnresolvedTokens: unresolved,
		},
		Prompt: prompt,
	}
}

func mergeTokenContext(ctx SpawnContext) map[string]string {
	merged := make(map[string]string, len(ctx.Defaults)+8)
	for k, v := range ctx.Defaults {
		merged[k] = v
	}

	merged["task.id"] = ctx.Task.ID
	merged["task.title"] = ctx.Task.Title
	merged["task.description"] = ctx.Task.Description
	merged["task.status"] = string(ctx.Task.Status)
	merged["task.priority"] = string(ctx.Task.Priority)
	merged["task.type"] = string(ctx.Task.Type)
	merged["task.phase"] = ctx.Task.Phase

	if ctx.Session != nil {
		merged["session.id"] = ctx.Session.ID
		merged["session.scope"] = ctx.Session.Scope
		merged["session.status"] = string(ctx.Session.Status)
	}

	return merged
}

// Tokens returns every {{TOKEN}} name referenced in template, for callers
// that want to validate a skill's template before it is ever spawned.
func Tokens(template string) []string {
	matches := tokenPattern.FindAllStringSubmatch(template, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

func (p SpawnPrompt) String() string {
	return fmt.Sprintf("spawn{skill=%s task=%s resolved=%v}", p.Skill, p.TaskID, p.TokenResolution.FullyResolved)
}
