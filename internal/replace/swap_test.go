package replace

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shelfterm/shelfterm/internal/badversion"
	"github.com/shelfterm/shelfterm/internal/semver"
)

// fakeBinary writes a tiny shell script that prints version when invoked
// with versionArg, and exits non-zero when failExit is true.
func fakeBinary(t *testing.T, path, version string, failExit bool) {
	t.Helper()
	script := fmt.Sprintf("#!/bin/sh\necho %s\n", version)
	if failExit {
		script = "#!/bin/sh\nexit 1\n"
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

// P5, P11: backup-before-harm and rollback correctness.
func TestReplaceHealthCheckFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	exePath := filepath.Join(dir, "shelfterm")
	fakeBinary(t, exePath, "1.3.2", false)
	originalBytes, _ := os.ReadFile(exePath)

	newBinPath := filepath.Join(dir, "shelfterm.new")
	fakeBinary(t, newBinPath, "1.3.3", true) // new binary exits non-zero

	backupDir := filepath.Join(dir, "backups")
	badPath := filepath.Join(dir, "bad_versions.json")

	r := New(
		NewBackupManager(backupDir, nil),
		NewHealthChecker("--version", nil),
		badversion.New(badPath, nil),
		nil,
	)

	err := r.Replace(exePath, newBinPath, "shelfterm", "1.3.2", semver.Version{Major: 1, Minor: 3, Patch: 3})
	if err == nil {
		t.Fatal("expected replacement error on health check failure")
	}
	replaceErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !replaceErr.RolledBack {
		t.Error("expected RolledBack=true")
	}

	gotBytes, err := os.ReadFile(exePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(gotBytes) != string(originalBytes) {
		t.Error("running executable should be byte-identical to pre-update backup after rollback")
	}

	bad := badversion.New(badPath, nil)
	if !bad.Contains("1.3.3") {
		t.Error("version should be marked bad after rollback")
	}
}

func TestReplaceHealthCheckSuccessKeepsNewBinary(t *testing.T) {
	dir := t.TempDir()
	exePath := filepath.Join(dir, "shelfterm")
	fakeBinary(t, exePath, "1.3.2", false)

	newBinPath := filepath.Join(dir, "shelfterm.new")
	fakeBinary(t, newBinPath, "1.3.3", false)

	backupDir := filepath.Join(dir, "backups")
	badPath := filepath.Join(dir, "bad_versions.json")

	r := New(
		NewBackupManager(backupDir, nil),
		NewHealthChecker("--version", nil),
		badversion.New(badPath, nil),
		nil,
	)

	err := r.Replace(exePath, newBinPath, "shelfterm", "1.3.2", semver.Version{Major: 1, Minor: 3, Patch: 3})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 backup file, got %d", len(entries))
	}

	data, err := os.ReadFile(exePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" {
		t.Error("expected new binary content at executable path")
	}
}
