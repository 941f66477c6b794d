package store

import "github.com/kryptobaseddev/cleo/internal/model"

// Engine is the storage-backend-agnostic surface handlers depend on. Both
// the JSON *Store and the optional *SQLiteStore implement it, so domain
// handlers never need to know which backend storage.engine selected.
type Engine interface {
	LoadTasks() ([]model.Task, error)
	SaveTasks([]model.Task) error
	LoadArchive() ([]model.ArchiveEntry, error)
	SaveArchive([]model.ArchiveEntry) error
	LoadSessions() ([]model.Session, error)
	SaveSessions([]model.Session) error

	// Lock serializes a read-modify-write sequence against resource
	// ("tasks", "archive", or "sessions"), so handlers never race a
	// concurrent mutator of the same file.
	Lock(resource string, fn func() error) error
}

var (
	_ Engine = (*Store)(nil)
	_ Engine = (*SQLiteStore)(nil)
)
