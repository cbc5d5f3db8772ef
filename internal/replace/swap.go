package replace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/shelfterm/shelfterm/internal/badversion"
	"github.com/shelfterm/shelfterm/internal/semver"
)

// SwapError is returned by the platform-specific swap step when it fails
// after already attempting to restore the prior state (Windows step 2).
// RolledBack reflects whether that inline restore succeeded.
type SwapError struct {
	Detail     string
	RolledBack bool
}

func (e *SwapError) Error() string {
	return e.Detail
}

// Error reports a replacement failure, always carrying whether the engine
// successfully rolled back to the pre-update executable.
type Error struct {
	Detail     string
	RolledBack bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("replacement failed: %s (rolled_back=%v)", e.Detail, e.RolledBack)
}

// Replacer performs the backup/swap/health-check/rollback sequence of
// spec.md §4.9.
type Replacer struct {
	backups *BackupManager
	health  *HealthChecker
	bad     *badversion.Tracker
	logger  *slog.Logger
}

// New builds a Replacer.
func New(backups *BackupManager, health *HealthChecker, bad *badversion.Tracker, logger *slog.Logger) *Replacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replacer{backups: backups, health: health, bad: bad, logger: logger}
}

// Replace executes the full sequence: backup the running executable,
// swap in newBinaryPath, set executable permissions, health-check the
// result, and roll back on failure.
//
// Invariant: at every moment during the swap and health check, at least
// one usable executable (original or new) is recoverable on disk.
func (r *Replacer) Replace(executablePath, newBinaryPath, programName, currentVersion string, newVersion semver.Version) error {
	backupPath, err := r.backups.CreatePreReplaceBackup(executablePath, programName, currentVersion)
	if err != nil {
		return &Error{Detail: err.Error(), RolledBack: false}
	}

	swapped, err := swap(executablePath, newBinaryPath, r.logger)
	if err != nil {
		var swapErr *SwapError
		if errors.As(err, &swapErr) {
			return &Error{Detail: swapErr.Detail, RolledBack: swapErr.RolledBack}
		}
		return &Error{Detail: err.Error(), RolledBack: false}
	}

	if err := setExecutable(executablePath); err != nil {
		r.logger.Warn("failed to set executable permissions, continuing to health check", "path", executablePath, "error", err)
	}

	if err := r.health.Check(executablePath, newVersion); err != nil {
		r.logger.Warn("health check failed, rolling back", "error", err)
		rollbackErr := rollback(executablePath, backupPath, swapped, r.logger)
		if r.bad != nil {
			if markErr := r.bad.MarkBad(newVersion.String()); markErr != nil {
				r.logger.Error("failed to mark version bad after rollback", "version", newVersion.String(), "error", markErr)
			}
		}
		if rollbackErr != nil {
			return &Error{Detail: fmt.Sprintf("health check failed and rollback failed: %v / %v", err, rollbackErr), RolledBack: false}
		}
		return &Error{Detail: err.Error(), RolledBack: true}
	}

	return nil
}

// swapState records what swap() did, for use by rollback().
type swapState struct {
	oldSuffixPath string // Windows only: the sibling ".old" path, empty on POSIX
}

// setExecutable sets the executable bit for owner/group/other on POSIX;
// it is a no-op on Windows, implemented in the platform-specific files.
func setExecutable(path string) error {
	return setExecutableBit(path)
}

func rollback(executablePath, backupPath string, swapped *swapState, logger *slog.Logger) error {
	return rollbackSwap(executablePath, backupPath, swapped, logger)
}

func swap(executablePath, newBinaryPath string, logger *slog.Logger) (*swapState, error) {
	return platformSwap(executablePath, newBinaryPath, logger)
}

// restoreFromBackup removes executablePath and copies backupPath back
// into its place with the backup's file mode, leaving the backup itself
// on disk. Used by rollback on both platforms.
func restoreFromBackup(executablePath, backupPath string) error {
	if err := os.Remove(executablePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := copyFile(backupPath, executablePath); err != nil {
		return err
	}
	info, err := os.Stat(backupPath)
	if err != nil {
		return err
	}
	return os.Chmod(executablePath, info.Mode())
}
