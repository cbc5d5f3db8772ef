package replace

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/shelfterm/shelfterm/internal/semver"
)

// HealthCheckTimeout bounds how long the post-swap version probe may run.
const HealthCheckTimeout = 10 * time.Second

// HealthChecker invokes the newly-installed binary with a
// version-reporting argument and confirms it reports the expected
// version within a bounded timeout.
type HealthChecker struct {
	versionArg string
	logger     *slog.Logger
}

// NewHealthChecker builds a HealthChecker that invokes the target binary
// with versionArg (e.g. "--version") to retrieve its reported version.
func NewHealthChecker(versionArg string, logger *slog.Logger) *HealthChecker {
	if logger == nil {
		logger = slog.Default()
	}
	if versionArg == "" {
		versionArg = "--version"
	}
	return &HealthChecker{versionArg: versionArg, logger: logger}
}

// Check runs binaryPath with the version argument and succeeds iff the
// process exits zero within HealthCheckTimeout and its output parses as a
// SemVer equal to wantVersion.
func (hc *HealthChecker) Check(binaryPath string, wantVersion semver.Version) error {
	ctx, cancel := context.WithTimeout(context.Background(), HealthCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binaryPath, hc.versionArg)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	hc.logger.Info("running post-swap health check", "binary", binaryPath, "want_version", wantVersion.String())

	if err := cmd.Run(); err != nil {
		hc.logger.Warn("health check invocation failed", "binary", binaryPath, "error", err, "output", out.String())
		return fmt.Errorf("health check invocation failed: %w", err)
	}

	got, err := semver.Parse(strings.TrimSpace(out.String()))
	if err != nil {
		hc.logger.Warn("health check output did not parse as a version", "binary", binaryPath, "output", out.String())
		return fmt.Errorf("health check output %q did not parse as a version: %w", out.String(), err)
	}

	if got != wantVersion {
		hc.logger.Warn("health check reported unexpected version", "binary", binaryPath, "got", got.String(), "want", wantVersion.String())
		return fmt.Errorf("health check reported version %s, want %s", got, wantVersion)
	}

	hc.logger.Info("health check passed", "binary", binaryPath, "version", got.String())
	return nil
}
