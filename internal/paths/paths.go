// Package paths resolves the project root, the per-file data paths under
// .cleo/, and the environment variables CLEO honors. There is no legacy
// environment fallback: CLEO_HOME, CLEO_DIR, CLEO_FORMAT, CLEO_DEBUG are the
// entire surface.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout resolves every on-disk location CLEO reads or writes for one
// project.
type Layout struct {
	Root    string // project root
	DataDir string // <root>/.cleo
}

// NewLayout resolves a Layout rooted at root. If root is empty, the current
// working directory is used, overridden by CLEO_DIR when set.
func NewLayout(root string) (*Layout, error) {
	if root == "" {
		if dir := os.Getenv("CLEO_DIR"); dir != "" {
			root = dir
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("paths: getwd: %w", err)
			}
			root = wd
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("paths: abs %s: %w", root, err)
	}
	return &Layout{Root: abs, DataDir: filepath.Join(abs, ".cleo")}, nil
}

// HomeDir returns CLEO_HOME, defaulting to ~/.cleo.
func HomeDir() string {
	if h := os.Getenv("CLEO_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cleo-home"
	}
	return filepath.Join(home, ".cleo")
}

// Format returns the CLEO_FORMAT override ("json"/"human"), or "" if unset.
func Format() string { return os.Getenv("CLEO_FORMAT") }

// Debug reports whether CLEO_DEBUG is set to a truthy value.
func Debug() bool {
	v := os.Getenv("CLEO_DEBUG")
	return v == "1" || v == "true" || v == "yes"
}

func (l *Layout) path(name string) string { return filepath.Join(l.DataDir, name) }

// TasksFile is the live task store.
func (l *Layout) TasksFile() string { return l.path("todo.json") }

// ArchiveFile holds archived tasks.
func (l *Layout) ArchiveFile() string { return l.path("todo-archive.json") }

// SessionsFile holds the session set.
func (l *Layout) SessionsFile() string { return l.path("sessions.json") }

// AuditFile is the append-only audit log (named .jsonl, stored as one JSON
// object per spec.md's documented on-disk shape).
func (l *Layout) AuditFile() string { return l.path("todo-log.jsonl") }

// BackupsDir holds timestamped backup snapshots.
func (l *Layout) BackupsDir() string { return l.path("backups") }

// SkillsDir holds one subdirectory per installed skill, each with a
// SKILL.md template and a state marker for enabled/disabled.
func (l *Layout) SkillsDir() string { return l.path("skills") }

// ConfigFile is the project-local TOML configuration file.
func (l *Layout) ConfigFile() string { return l.path("config.toml") }

// SQLiteFile is the on-disk database used when storage.engine = sqlite.
func (l *Layout) SQLiteFile() string { return l.path("tasks.db") }

// LockDir returns the lock directory for a given data file path. A lock is
// a directory, not a file, so its atomic creation (mkdir, which fails if it
// exists) is the acquisition primitive.
func (l *Layout) LockDir(dataFile string) string { return dataFile + ".lock" }

// Ensure creates the data directory and backups directory if missing.
func (l *Layout) Ensure() error {
	if err := os.MkdirAll(l.DataDir, 0o755); err != nil {
		return fmt.Errorf("paths: mkdir %s: %w", l.DataDir, err)
	}
	if err := os.MkdirAll(l.BackupsDir(), 0o755); err != nil {
		return fmt.Errorf("paths: mkdir %s: %w", l.BackupsDir(), err)
	}
	return nil
}

// Exists reports whether the project's data directory has been initialized.
func (l *Layout) Exists() bool {
	info, err := os.Stat(l.DataDir)
	return err == nil && info.IsDir()
}
