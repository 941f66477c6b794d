// Package store is the sole writer of a CLEO project's data directory:
// tasks, archive, sessions, and (indirectly, via internal/audit) the audit
// log. It enforces atomicity, durability, and single-writer semantics
// through per-file directory locks and atomic-rename writes.
package store

import (
	"fmt"
	"time"

	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/paths"
)

// Meta is the `_meta` envelope present at the root of every JSON data file.
type Meta struct {
	SchemaVersion int    `json:"schemaVersion"`
	LastArchived  string `json:"lastArchived,omitempty"`
}

// CurrentSchemaVersion is the schema version this implementation writes.
// Readers accept any version <= this and run no migration of their own.
const CurrentSchemaVersion = 1

type tasksFile struct {
	Meta  Meta         `json:"_meta"`
	Tasks []model.Task `json:"tasks"`
}

// archiveFile tolerates either `archivedTasks` (current) or the legacy
// `tasks` root key on read, per spec.md §9's open question; writers always
// emit `archivedTasks`.
type archiveFile struct {
	Meta          Meta                 `json:"_meta"`
	ArchivedTasks []model.ArchiveEntry `json:"archivedTasks"`
	LegacyTasks   []model.ArchiveEntry `json:"tasks"`
}

type sessionsFile struct {
	Meta     Meta            `json:"_meta"`
	Sessions []model.Session `json:"sessions"`
}

// Store is the process-wide owner of one project's on-disk files.
type Store struct {
	layout *paths.Layout
	lockOp LockOptions
}

// Open resolves layout and ensures the project data directory exists.
func Open(layout *paths.Layout, lockOpts LockOptions) (*Store, error) {
	if err := layout.Ensure(); err != nil {
		return nil, err
	}
	return &Store{layout: layout, lockOp: lockOpts}, nil
}

// Layout exposes the resolved path layout.
func (s *Store) Layout() *paths.Layout { return s.layout }

// WithLock acquires the exclusive lock for file, runs fn, and releases the
// lock on every exit path (success, error, or panic).
func (s *Store) WithLock(file string, fn func() error) (err error) {
	lock, lockErr := acquireLock(s.layout.LockDir(file), s.lockOp)
	if lockErr != nil {
		return fmt.Errorf("store: %w", lockErr)
	}
	defer func() {
		if relErr := lock.release(); relErr != nil && err == nil {
			err = fmt.Errorf("store: release lock %s: %w", file, relErr)
		}
	}()
	return fn()
}

// Lock serializes fn against resource's underlying file lock. resource is
// one of "tasks", "archive", "sessions".
func (s *Store) Lock(resource string, fn func() error) error {
	file, err := s.resourceFile(resource)
	if err != nil {
		return err
	}
	return s.WithLock(file, fn)
}

func (s *Store) resourceFile(resource string) (string, error) {
	switch resource {
	case "tasks":
		return s.layout.TasksFile(), nil
	case "archive":
		return s.layout.ArchiveFile(), nil
	case "sessions":
		return s.layout.SessionsFile(), nil
	default:
		return "", fmt.Errorf("store: unknown lock resource %q", resource)
	}
}

// LoadTasks reads the live task set. A missing or empty file yields a nil
// slice rather than an error.
func (s *Store) LoadTasks() ([]model.Task, error) {
	var tf tasksFile
	ok, err := safeReadJSON(s.layout.TasksFile(), &tf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return tf.Tasks, nil
}

// SaveTasks atomically persists the live task set.
func (s *Store) SaveTasks(tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	tf := tasksFile{Meta: Meta{SchemaVersion: CurrentSchemaVersion}, Tasks: tasks}
	return atomicWriteJSON(s.layout.TasksFile(), tf)
}

// LoadArchive reads the archived task set, tolerating either the
// `archivedTasks` or legacy `tasks` root key.
func (s *Store) LoadArchive() ([]model.ArchiveEntry, error) {
	var af archiveFile
	ok, err := safeReadJSON(s.layout.ArchiveFile(), &af)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if len(af.ArchivedTasks) > 0 {
		return af.ArchivedTasks, nil
	}
	return af.LegacyTasks, nil
}

// SaveArchive atomically persists the archive. Writers always standardize
// on the `archivedTasks` root key (spec.md §9: the legacy `tasks` writer is
// not preserved going forward).
func (s *Store) SaveArchive(entries []model.ArchiveEntry) error {
	if entries == nil {
		entries = []model.ArchiveEntry{}
	}
	af := archiveFile{Meta: Meta{SchemaVersion: CurrentSchemaVersion}, ArchivedTasks: entries}
	return atomicWriteJSON(s.layout.ArchiveFile(), af)
}

// LoadSessions reads the session set.
func (s *Store) LoadSessions() ([]model.Session, error) {
	var sf sessionsFile
	ok, err := safeReadJSON(s.layout.SessionsFile(), &sf)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return sf.Sessions, nil
}

// SaveSessions atomically persists the session set.
func (s *Store) SaveSessions(sessions []model.Session) error {
	if sessions == nil {
		sessions = []model.Session{}
	}
	sf := sessionsFile{Meta: Meta{SchemaVersion: CurrentSchemaVersion}, Sessions: sessions}
	return atomicWriteJSON(s.layout.SessionsFile(), sf)
}

// BackupNow writes a timestamped snapshot of all live data files under
// <dataDir>/backups/<ISO-timestamp>/, following the teacher's db-backup
// tool's timestamped-directory naming convention. Called directly by
// admin.backup, and by internal/handlers before any mutating-and-risky
// operation (admin.migrate, tasks.archive, tasks.restore) per spec.md §3.
func (s *Store) BackupNow(now time.Time) (string, error) {
	return backupNow(s.layout, now)
}

// RestoreFrom copies the data files in backupDir (as produced by BackupNow)
// back over this store's live files.
func (s *Store) RestoreFrom(backupDir string) error {
	return restoreFrom(s.layout, backupDir)
}
