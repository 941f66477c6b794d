package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kryptobaseddev/cleo/internal/model"
	"github.com/kryptobaseddev/cleo/internal/paths"
)

// SQLiteStore is the optional SQLite-backed engine selected by
// storage.engine = "sqlite". It presents the same load/save surface as the
// JSON engine so handlers never need to know which backend is active; the
// dispatch pipeline and handlers see either one only through Engine.
//
// Schema and pragma choices are grounded on the teacher's internal/store
// Open()/migrate() idiom: WAL journal mode, busy_timeout, additive-only
// schema evolution guarded by an information_schema-style existence check.
type SQLiteStore struct {
	db     *sql.DB
	layout *paths.Layout
	mu     sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id      TEXT PRIMARY KEY,
	data    TEXT NOT NULL,
	status  TEXT NOT NULL,
	archived INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS sessions (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_archived ON tasks(archived);
`

// OpenSQLite opens (creating if absent) the SQLite database at
// layout.SQLiteFile(), applying pragmas and schema exactly once.
func OpenSQLite(layout *paths.Layout) (*SQLiteStore, error) {
	dsn := layout.SQLiteFile() + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite open: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: sqlite schema: %w", err)
	}
	if err := ensureSchemaMeta(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, layout: layout}, nil
}

func ensureSchemaMeta(db *sql.DB) error {
	_, err := db.Exec(
		`INSERT INTO schema_meta(key, value) VALUES ('schemaVersion', ?)
		 ON CONFLICT(key) DO NOTHING`,
		fmt.Sprintf("%d", CurrentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("store: sqlite schema_meta: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Lock serializes fn against this process's other SQLite callers. Resource
// is accepted for Engine-interface symmetry with the JSON store but
// otherwise ignored: one mutex covers the whole database, matching the
// single-process cooperative scheduling model.
func (s *SQLiteStore) Lock(resource string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

// LoadTasks returns every non-archived task.
func (s *SQLiteStore) LoadTasks() ([]model.Task, error) {
	return s.queryTasks(`SELECT data FROM tasks WHERE archived = 0`)
}

// LoadArchive returns every archived task, decoded as ArchiveEntry.
func (s *SQLiteStore) LoadArchive() ([]model.ArchiveEntry, error) {
	rows, err := s.db.Query(`SELECT data FROM tasks WHERE archived = 1`)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite query archive: %w", err)
	}
	defer rows.Close()

	var out []model.ArchiveEntry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: sqlite scan archive: %w", err)
		}
		var entry model.ArchiveEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("store: sqlite decode archive: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) queryTasks(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite query tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: sqlite scan task: %w", err)
		}
		var task model.Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return nil, fmt.Errorf("store: sqlite decode task: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// SaveTasks replaces the live (non-archived) task set within one
// transaction.
func (s *SQLiteStore) SaveTasks(tasks []model.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE archived = 0`); err != nil {
		return fmt.Errorf("store: sqlite clear tasks: %w", err)
	}
	for _, task := range tasks {
		if err := upsertTask(tx, task, 0); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveArchive replaces the archived task set within one transaction.
func (s *SQLiteStore) SaveArchive(entries []model.ArchiveEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks WHERE archived = 1`); err != nil {
		return fmt.Errorf("store: sqlite clear archive: %w", err)
	}
	for _, entry := range entries {
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("store: sqlite encode archive entry: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO tasks(id, data, status, archived) VALUES (?, ?, ?, 1)`,
			entry.ID, string(raw), string(entry.Status),
		); err != nil {
			return fmt.Errorf("store: sqlite insert archive entry: %w", err)
		}
	}
	return tx.Commit()
}

func upsertTask(tx *sql.Tx, task model.Task, archived int) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("store: sqlite encode task: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO tasks(id, data, status, archived) VALUES (?, ?, ?, ?)`,
		task.ID, string(raw), string(task.Status), archived,
	)
	if err != nil {
		return fmt.Errorf("store: sqlite insert task: %w", err)
	}
	return nil
}

// LoadSessions returns every session row.
func (s *SQLiteStore) LoadSessions() ([]model.Session, error) {
	rows, err := s.db.Query(`SELECT data FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite query sessions: %w", err)
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: sqlite scan session: %w", err)
		}
		var sess model.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			return nil, fmt.Errorf("store: sqlite decode session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SaveSessions replaces the session set within one transaction.
func (s *SQLiteStore) SaveSessions(sessions []model.Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("store: sqlite clear sessions: %w", err)
	}
	for _, sess := range sessions {
		raw, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("store: sqlite encode session: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO sessions(id, data) VALUES (?, ?)`, sess.ID, string(raw)); err != nil {
			return fmt.Errorf("store: sqlite insert session: %w", err)
		}
	}
	return tx.Commit()
}

// rowCount returns the number of task rows, used by MigrateJSONToSQLite's
// validation step to detect data loss.
func (s *SQLiteStore) rowCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: sqlite row count: %w", err)
	}
	return n, nil
}

// MigrateJSONToSQLite performs the strict atomic migration pattern required
// by spec.md §4.1: temp -> validate -> backup -> rename. The new database
// is built at <db>.new, validated (schema_meta present, row count
// reconciles with the JSON source), the existing <db> (if any) copied to
// <db>.backup, then the validated file is renamed into place. On any
// failure the .new temp is removed and the original database is untouched.
func MigrateJSONToSQLite(jsonStore *Store, layout *paths.Layout) (err error) {
	tasks, err := jsonStore.LoadTasks()
	if err != nil {
		return err
	}
	archive, err := jsonStore.LoadArchive()
	if err != nil {
		return err
	}
	sessions, err := jsonStore.LoadSessions()
	if err != nil {
		return err
	}

	if len(tasks)+len(archive) == 0 {
		if existing, statErr := os.Stat(layout.SQLiteFile()); statErr == nil && existing.Size() > 0 {
			return fmt.Errorf("store: VALIDATION_ERROR: refusing to migrate zero JSON tasks over a non-empty database (possible data loss)")
		}
	}

	newPath := layout.SQLiteFile() + ".new"
	os.Remove(newPath)
	defer os.Remove(newPath)

	newLayout := &paths.Layout{Root: layout.Root, DataDir: layout.DataDir}
	newDB, err := openSQLiteAt(newPath)
	if err != nil {
		return err
	}
	newStore := &SQLiteStore{db: newDB, layout: newLayout}

	if err := newStore.SaveTasks(tasks); err != nil {
		newStore.Close()
		return err
	}
	if err := newStore.SaveArchive(archive); err != nil {
		newStore.Close()
		return err
	}
	if err := newStore.SaveSessions(sessions); err != nil {
		newStore.Close()
		return err
	}

	count, err := newStore.rowCount()
	newStore.Close()
	if err != nil {
		return err
	}
	if count != len(tasks)+len(archive) {
		return fmt.Errorf("store: VALIDATION_ERROR: migrated row count %d does not reconcile with source %d", count, len(tasks)+len(archive))
	}

	backupPath := layout.SQLiteFile() + ".backup"
	if _, statErr := os.Stat(layout.SQLiteFile()); statErr == nil {
		if err := copyIfExists(layout.SQLiteFile(), backupPath); err != nil {
			return err
		}
	}

	if err := os.Rename(newPath, layout.SQLiteFile()); err != nil {
		return fmt.Errorf("store: rename migrated database: %w", err)
	}
	os.Remove(backupPath)
	return nil
}

func openSQLiteAt(path string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: sqlite open %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: sqlite schema %s: %w", path, err)
	}
	if err := ensureSchemaMeta(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// MigrateSQLiteToJSON is the inverse migration, used by admin.migrate when
// switching storage.engine back to json. It follows the same
// temp-write-then-atomic-rename discipline via jsonStore.Save*, which are
// already atomic per file.
func MigrateSQLiteToJSON(sqliteStore *SQLiteStore, jsonStore *Store) error {
	tasks, err := sqliteStore.LoadTasks()
	if err != nil {
		return err
	}
	archive, err := sqliteStore.LoadArchive()
	if err != nil {
		return err
	}
	sessions, err := sqliteStore.LoadSessions()
	if err != nil {
		return err
	}
	if err := jsonStore.SaveTasks(tasks); err != nil {
		return err
	}
	if err := jsonStore.SaveArchive(archive); err != nil {
		return err
	}
	return jsonStore.SaveSessions(sessions)
}
