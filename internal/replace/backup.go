// Package replace performs the
// backup-then-swap-then-health-check-then-rollback replacement of the
// running executable with a binary already extracted from a verified
// archive (extraction is done by package verify).
package replace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// BackupManager snapshots the currently-running executable before it is
// destructively modified.
type BackupManager struct {
	dir    string
	logger *slog.Logger
}

// NewBackupManager builds a BackupManager writing into dir.
func NewBackupManager(dir string, logger *slog.Logger) *BackupManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupManager{dir: dir, logger: logger}
}

// CreatePreReplaceBackup copies executablePath to
// {backup_dir}/{programName}.{currentVersion}.{UTC timestamp
// YYYYMMDDThhmmssZ}, per spec.md §4.9 step 1. The backup is the invariant
// that must exist before any destructive modification of the running
// executable begins.
func (bm *BackupManager) CreatePreReplaceBackup(executablePath, programName, currentVersion string) (string, error) {
	if err := os.MkdirAll(bm.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}

	stamp := time.Now().UTC().Format("20060102T150405Z")
	backupPath := filepath.Join(bm.dir, fmt.Sprintf("%s.%s.%s", programName, currentVersion, stamp))

	bm.logger.Info("creating pre-replace backup", "source", executablePath, "backup", backupPath)

	if err := copyFile(executablePath, backupPath); err != nil {
		return "", fmt.Errorf("create pre-replace backup: %w", err)
	}

	info, err := os.Stat(executablePath)
	if err == nil {
		os.Chmod(backupPath, info.Mode())
	}

	bm.logger.Info("pre-replace backup created", "backup", backupPath)
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
