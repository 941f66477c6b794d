package team

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkillTemplatesCoverTaxonomy(t *testing.T) {
	expected := []string{
		"ct-researcher", "ct-task-executor", "ct-planner", "ct-documenter",
		"ct-tester", "ct-validator", "ct-spec-writer", "ct-bash-librarian",
		"ct-workflow-runner", "ct-orchestrator",
	}
	for _, name := range expected {
		_, ok := skillTemplates[name]
		require.Truef(t, ok, "missing skill template for %q", name)
	}
}

func TestInstallSkillWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallSkill(dir, "ct-researcher"))

	got, err := os.ReadFile(filepath.Join(dir, "ct-researcher", "SKILL.md"))
	require.NoError(t, err)
	require.Equal(t, skillTemplates["ct-researcher"], string(got))
}

func TestRefreshSkillOverwritesStaleTemplate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallSkill(dir, "ct-planner"))

	path := filepath.Join(dir, "ct-planner", "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte("stale content"), 0o644))

	require.NoError(t, RefreshSkill(dir, "ct-planner"))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, skillTemplates["ct-planner"], string(got))
}

func TestEnableDisableSkill(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallSkill(dir, "ct-tester"))

	infos, err := ListSkills(dir, []string{"ct-tester"})
	require.NoError(t, err)
	require.True(t, infos[0].Installed)
	require.True(t, infos[0].Enabled)

	require.NoError(t, DisableSkill(dir, "ct-tester"))
	infos, err = ListSkills(dir, []string{"ct-tester"})
	require.NoError(t, err)
	require.False(t, infos[0].Enabled)

	require.NoError(t, EnableSkill(dir, "ct-tester"))
	infos, err = ListSkills(dir, []string{"ct-tester"})
	require.NoError(t, err)
	require.True(t, infos[0].Enabled)
}

func TestUninstallSkillRemovesState(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallSkill(dir, "ct-documenter"))
	require.NoError(t, UninstallSkill(dir, "ct-documenter"))

	infos, err := ListSkills(dir, []string{"ct-documenter"})
	require.NoError(t, err)
	require.False(t, infos[0].Installed)
}

func TestListSkillsReportsUninstalled(t *testing.T) {
	dir := t.TempDir()
	infos, err := ListSkills(dir, []string{"ct-validator", "ct-orchestrator"})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	for _, info := range infos {
		require.False(t, info.Installed)
		require.False(t, info.Enabled)
	}
}

func TestConfigureSkillPersistsOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InstallSkill(dir, "ct-spec-writer"))
	require.NoError(t, ConfigureSkill(dir, "ct-spec-writer", SkillConfig{TokenBudget: 4000, Model: "opus", Tier: "premium"}))

	meta, err := LoadSkillMetadata(dir, "ct-spec-writer")
	require.NoError(t, err)
	require.Equal(t, 4000, meta.TokenBudget)
	require.Equal(t, "opus", meta.Model)
	require.Equal(t, "premium", meta.Tier)
}

func TestConfigureSkillRejectsUninstalled(t *testing.T) {
	dir := t.TempDir()
	err := ConfigureSkill(dir, "ct-tester", SkillConfig{})
	require.Error(t, err)
}

func TestLoadSkillMetadataRejectsUninstalled(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadSkillMetadata(dir, "ct-tester")
	require.Error(t, err)
}
