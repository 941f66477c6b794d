// Package audit implements the append-only audit log: one file named with
// a .jsonl suffix but stored as a single JSON object {entries: [...]},
// exactly as spec.md §9 documents despite the misleading extension.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kryptobaseddev/cleo/internal/model"
)

// logFile is the on-disk shape of the audit log.
type logFile struct {
	Entries []model.AuditEntry `json:"entries"`
}

// Log appends structured audit entries to one file. It takes no lock of its
// own; see Append.
type Log struct {
	path string
}

// New returns a Log bound to path (typically layout.AuditFile()).
func New(path string) *Log { return &Log{path: path} }

// Append adds entry to the log. Callers are expected to invoke Append from
// inside Store.WithLock(layout.AuditFile(), ...) so concurrent dispatches
// serialize; Append itself only performs the read-modify-atomic-write.
func (l *Log) Append(entry model.AuditEntry) error {
	var lf logFile
	if err := readLog(l.path, &lf); err != nil {
		return err
	}
	if len(lf.Entries) > 0 {
		last := lf.Entries[len(lf.Entries)-1].TS
		if entry.TS.Before(last) {
			entry.TS = last // P7: ts is non-decreasing relative to the previous entry
		}
	}
	lf.Entries = append(lf.Entries, entry)
	return writeLog(l.path, lf)
}

// All returns every entry in the log, oldest first.
func (l *Log) All() ([]model.AuditEntry, error) {
	var lf logFile
	if err := readLog(l.path, &lf); err != nil {
		return nil, err
	}
	return lf.Entries, nil
}

func readLog(path string, lf *logFile) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("audit: FILE_ERROR: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, lf); err != nil {
		return fmt.Errorf("audit: FILE_ERROR: corrupt json in %s: %w", path, err)
	}
	return nil
}

func writeLog(path string, lf logFile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("audit: mkdir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("audit: marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("audit: create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("audit: write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("audit: fsync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("audit: close temp for %s: %w", path, err)
	}
	return os.Rename(tmpPath, path)
}

// NewEntry builds an AuditEntry with the timestamp stamped at call time.
func NewEntry(action, gateway, domain, operation, source, requestID string) model.AuditEntry {
	return model.AuditEntry{
		TS:        time.Now().UTC(),
		Action:    action,
		Gateway:   gateway,
		Domain:    domain,
		Operation: operation,
		Source:    source,
		RequestID: requestID,
	}
}
