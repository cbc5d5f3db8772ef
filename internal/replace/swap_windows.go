//go:build windows

package replace

import (
	"fmt"
	"log/slog"
	"os"
)

// platformSwap performs the rename-then-rename pattern required on
// Windows, where the running executable cannot be overwritten in place:
// rename the current executable to a sibling ".old" path, then rename the
// new binary into the original path. Failure of the first rename leaves
// nothing touched; failure of the second rename triggers an attempted
// rollback of the first.
func platformSwap(executablePath, newBinaryPath string, logger *slog.Logger) (*swapState, error) {
	oldPath := executablePath + ".old"

	if err := os.Rename(executablePath, oldPath); err != nil {
		return nil, fmt.Errorf("rename running executable aside: %w", err)
	}

	if err := os.Rename(newBinaryPath, executablePath); err != nil {
		if restoreErr := os.Rename(oldPath, executablePath); restoreErr != nil {
			return nil, &SwapError{
				Detail:     fmt.Sprintf("rename new binary into place failed (%v), and restoring original failed: %v", err, restoreErr),
				RolledBack: false,
			}
		}
		logger.Warn("rename new binary into place failed, restored original executable", "path", executablePath, "error", err)
		return nil, &SwapError{Detail: fmt.Sprintf("rename new binary into place: %v", err), RolledBack: true}
	}

	state := &swapState{oldSuffixPath: oldPath}

	// Attempt to delete the ".old" file; failure is a warning only, per
	// spec.md §4.9 step 2 (Windows may hold the file open until reboot).
	if err := os.Remove(oldPath); err != nil {
		logger.Warn("could not remove .old file after swap, leaving it in place", "path", oldPath, "error", err)
	} else {
		state.oldSuffixPath = ""
	}

	logger.Info("swapped executable (Windows rename-then-rename)", "path", executablePath)
	return state, nil
}

// rollbackSwap restores executablePath: if the ".old" file is still
// present (the post-swap deletion failed or never ran because the swap
// itself failed before deletion), rename it back over executablePath;
// otherwise fall back to restoring from the timestamped backup.
func rollbackSwap(executablePath, backupPath string, state *swapState, logger *slog.Logger) error {
	if state != nil && state.oldSuffixPath != "" {
		if err := os.Rename(state.oldSuffixPath, executablePath); err == nil {
			logger.Info("rolled back executable via .old rename", "path", executablePath)
			return nil
		}
	}
	if err := restoreFromBackup(executablePath, backupPath); err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}
	logger.Info("rolled back executable to pre-update backup", "path", executablePath)
	return nil
}

// setExecutableBit is a no-op on Windows; executability is determined by
// file extension, not a permission bit.
func setExecutableBit(path string) error {
	return nil
}
