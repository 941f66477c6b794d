package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kryptobaseddev/cleo/internal/paths"
)

// backupNow copies the live JSON data files into a fresh timestamped
// directory under <dataDir>/backups/, following the teacher's db-backup
// tool's <ISO-timestamp> directory-naming convention. Missing source files
// are skipped rather than treated as an error.
func backupNow(layout *paths.Layout, now time.Time) (string, error) {
	stamp := now.UTC().Format("20060102T150405Z")
	dest := filepath.Join(layout.BackupsDir(), stamp)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("store: backup mkdir %s: %w", dest, err)
	}

	sources := []string{layout.TasksFile(), layout.ArchiveFile(), layout.SessionsFile(), layout.AuditFile()}
	if layout.Exists() {
		if _, err := os.Stat(layout.SQLiteFile()); err == nil {
			sources = append(sources, layout.SQLiteFile())
		}
	}

	for _, src := range sources {
		if err := copyIfExists(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// restoreFrom copies the data files found in backupDir back over the live
// files in layout, the inverse of backupNow. A missing file in backupDir
// leaves the corresponding live file untouched.
func restoreFrom(layout *paths.Layout, backupDir string) error {
	targets := []string{layout.TasksFile(), layout.ArchiveFile(), layout.SessionsFile(), layout.AuditFile(), layout.SQLiteFile()}
	for _, dst := range targets {
		src := filepath.Join(backupDir, filepath.Base(dst))
		if err := copyIfExists(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyIfExists(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("store: backup open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("store: backup create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("store: backup copy %s: %w", src, err)
	}
	return out.Sync()
}
