// Package team manages the on-disk registry of installed skills: the
// SKILL.md template each one spawns with, its enabled/disabled state, and
// per-skill configuration overrides. It backs the tools.skill.* handlers.
package team

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kryptobaseddev/cleo/internal/orchestrator"
)

// skillTemplates provides the SKILL.md content installed for each of the
// ten fixed skill categories.
var skillTemplates = map[string]string{
	"ct-researcher": `# Research Skill

You investigate {{task.title}} before any implementation begins.

## Responsibilities
- Survey prior art and existing code relevant to the task
- Record findings as structured notes, not prose
- Flag open questions instead of guessing

## Handoff
- When research is complete, hand off to ct-planner or ct-task-executor
`,
	"ct-task-executor": `# Task Executor Skill

You implement {{task.title}} directly.

## Responsibilities
- Follow the task description and any linked plan
- Write tests alongside the implementation
- Leave the task at stage:review when done
`,
	"ct-planner": `# Planner Skill

You turn {{task.title}} into an actionable implementation plan.

## Responsibilities
- Break the task into ordered, independently-verifiable steps
- Identify files to create or modify
- Note edge cases and a testing strategy
`,
	"ct-documenter": `# Documentation Skill

You write or update documentation for {{task.title}}.

## Responsibilities
- Keep doc changes scoped to what the task touched
- Match the existing documentation's voice and structure
`,
	"ct-tester": `# Testing Skill

You verify {{task.title}} against its acceptance criteria.

## Responsibilities
- Run the existing test suite
- Add coverage for the task's new behavior
- Report failures with enough detail to reproduce them
`,
	"ct-validator": `# Validation Skill

You audit {{task.title}} for compliance before it closes.

## Responsibilities
- Re-check every acceptance criterion
- Confirm workflow gates are in the expected state
- Reject with a specific reason, never a vague one
`,
	"ct-spec-writer": `# Specification Skill

You write or refine the specification driving {{task.title}}.

## Responsibilities
- Make invariants and edge cases explicit
- Call out open questions rather than deciding silently
`,
	"ct-bash-librarian": `# Bash Library Skill

You write or maintain shell tooling for {{task.title}}.

## Responsibilities
- Keep scripts POSIX-portable unless bash features are required
- Fail loudly on unexpected state; no silent swallowing of errors
`,
	"ct-workflow-runner": `# Workflow Skill

You drive {{task.title}} through its lifecycle stages.

## Responsibilities
- Record each stage transition with evidence
- Stop and report if a gate blocks the next stage
`,
	"ct-orchestrator": `# Orchestration Skill

You coordinate the subagents working {{task.title}}.

## Responsibilities
- Select and spawn the right skill per subtask
- Track parallel work groups and avoid double-dispatch
`,
}

// SkillInfo describes one skill's installed/enabled state.
type SkillInfo struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	Enabled   bool   `json:"enabled"`
}

func skillDir(skillsDir, name string) string { return filepath.Join(skillsDir, name) }

// InstallSkill creates name's directory under skillsDir and writes its
// SKILL.md template. Installing an already-installed skill just refreshes
// its template.
func InstallSkill(skillsDir, name string) error {
	dir := skillDir(skillsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("team: mkdir %s: %w", dir, err)
	}
	return RefreshSkill(skillsDir, name)
}

// UninstallSkill removes name's entire on-disk state.
func UninstallSkill(skillsDir, name string) error {
	return os.RemoveAll(skillDir(skillsDir, name))
}

// EnableSkill clears name's disabled marker, if present.
func EnableSkill(skillsDir, name string) error {
	path := filepath.Join(skillDir(skillsDir, name), ".disabled")
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("team: enable %s: %w", name, err)
	}
	return nil
}

// DisableSkill writes name's disabled marker.
func DisableSkill(skillsDir, name string) error {
	dir := skillDir(skillsDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("team: skill %q not installed: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, ".disabled"), nil, 0o644)
}

// SkillConfig is the persisted configure.* overrides for one skill.
type SkillConfig struct {
	TokenBudget int      `json:"tokenBudget,omitempty"`
	Model       string   `json:"model,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	References  []string `json:"references,omitempty"`
}

// ConfigureSkill writes cfg as name's persisted configuration overrides.
func ConfigureSkill(skillsDir, name string, cfg SkillConfig) error {
	dir := skillDir(skillsDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("team: skill %q not installed: %w", name, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("team: marshal config for %s: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// RefreshSkill rewrites name's SKILL.md from the current template,
// overwriting any prior (possibly stale) content.
func RefreshSkill(skillsDir, name string) error {
	content, ok := skillTemplates[name]
	if !ok {
		return fmt.Errorf("team: unknown skill %q", name)
	}
	dir := skillDir(skillsDir, name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("team: skill %q not installed: %w", name, err)
	}
	return os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644)
}

// ListSkills reports installed/enabled state for each of names.
func ListSkills(skillsDir string, names []string) ([]SkillInfo, error) {
	infos := make([]SkillInfo, 0, len(names))
	for _, name := range names {
		dir := skillDir(skillsDir, name)
		info := SkillInfo{Name: name}
		if _, err := os.Stat(dir); err == nil {
			info.Installed = true
			if _, err := os.Stat(filepath.Join(dir, ".disabled")); err != nil {
				info.Enabled = true
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// LoadSkillMetadata reads name's installed SKILL.md template and config.json
// overrides into an orchestrator.SkillMetadata ready for PrepareSpawn.
func LoadSkillMetadata(skillsDir, name string) (orchestrator.SkillMetadata, error) {
	dir := skillDir(skillsDir, name)
	templateBytes, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	if err != nil {
		return orchestrator.SkillMetadata{}, fmt.Errorf("team: skill %q not installed: %w", name, err)
	}

	meta := orchestrator.SkillMetadata{Name: name, Path: dir, Template: string(templateBytes)}

	cfgBytes, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err == nil {
		var cfg SkillConfig
		if err := json.Unmarshal(cfgBytes, &cfg); err == nil {
			meta.TokenBudget = cfg.TokenBudget
			meta.Model = cfg.Model
			meta.Tier = cfg.Tier
			meta.References = cfg.References
		}
	}

	return meta, nil
}
