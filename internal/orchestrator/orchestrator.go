package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	logging "github.com/shelfterm/shelfterm/pkg/logger"

	"github.com/shelfterm/shelfterm/internal/asset"
	"github.com/shelfterm/shelfterm/internal/badversion"
	"github.com/shelfterm/shelfterm/internal/config"
	"github.com/shelfterm/shelfterm/internal/download"
	"github.com/shelfterm/shelfterm/internal/lock"
	"github.com/shelfterm/shelfterm/internal/mode"
	"github.com/shelfterm/shelfterm/internal/platform"
	"github.com/shelfterm/shelfterm/internal/release"
	"github.com/shelfterm/shelfterm/internal/replace"
	"github.com/shelfterm/shelfterm/internal/retry"
	"github.com/shelfterm/shelfterm/internal/semver"
	"github.com/shelfterm/shelfterm/internal/verify"
)

// Orchestrator wires every component into the thirteen-step
// check_and_update pipeline of spec.md §4.12.
type Orchestrator struct {
	cfg            config.Config
	programName    string
	currentVersion semver.Version
	executablePath string
	cacheDir       string

	release  *release.Client
	bad      *badversion.Tracker
	download *download.Downloader
	verifier *verify.Verifier
	replacer *replace.Replacer

	handler mode.Handler
	metrics *Metrics
	logger  *slog.Logger
}

// Option customizes an Orchestrator built by New; it exists primarily so
// tests can substitute a release-client base URL or a verifier built
// against a test signing key instead of the compiled-in production one.
type Option func(*Orchestrator)

// WithReleaseClient overrides the default GitHub-style release client.
func WithReleaseClient(c *release.Client) Option {
	return func(o *Orchestrator) { o.release = c }
}

// WithVerifier overrides the default Verifier (compiled-in public key).
func WithVerifier(v *verify.Verifier) Option {
	return func(o *Orchestrator) { o.verifier = v }
}

// New builds an Orchestrator. cacheDir is the per-user cache root
// (spec.md §6.2); executablePath is the path of the currently-running
// binary.
func New(
	cfg config.Config,
	programName string,
	currentVersion semver.Version,
	executablePath, cacheDir string,
	handler mode.Handler,
	logger *slog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	userAgent := fmt.Sprintf("%s/%s", programName, currentVersion.String())
	badTracker := badversion.New(filepath.Join(cacheDir, "bad_versions.json"), logger)

	o := &Orchestrator{
		cfg:            cfg,
		programName:    programName,
		currentVersion: currentVersion,
		executablePath: executablePath,
		cacheDir:       cacheDir,

		release:  release.New(userAgent, release.WithLogger(logger)),
		bad:      badTracker,
		download: download.New(logger),
		verifier: verify.New(verify.PublicKey[:], logger),
		replacer: replace.New(
			replace.NewBackupManager(cfg.BackupDir, logger),
			replace.NewHealthChecker("--version", logger),
			badTracker,
			logger,
		),

		handler: handler,
		metrics: NewMetrics(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Metrics returns the orchestrator's metrics, whose Registry the host
// application may expose.
func (o *Orchestrator) Metrics() *Metrics {
	return o.metrics
}

// CheckAndUpdate runs the full pipeline once. It always releases the
// lock and removes temp artifacts before returning, including on panic.
func (o *Orchestrator) CheckAndUpdate(ctx context.Context) (out Outcome, failure Failure) {
	invocationID := uuid.New().String()
	ctx = logging.WithRequestID(ctx, invocationID)
	logger := o.logger.With("invocation_id", logging.GetRequestID(ctx))

	var stagingDir string
	defer func() {
		if stagingDir != "" {
			if err := os.RemoveAll(stagingDir); err != nil {
				logger.Warn("failed to clean up staging directory", "path", stagingDir, "error", err)
			}
		}
		if r := recover(); r != nil {
			logger.Error("panic in check_and_update, pipeline unwound", "panic", r)
			out = nil
			failure = &ReplacementFailure{Detail: fmt.Sprintf("internal error: %v", r), RolledBack: true}
		}
		o.recordOutcome(out, failure)
	}()

	// Step 1: enabled gate.
	if !o.cfg.Enabled {
		return Skipped{Reason: ReasonDisabled}, nil
	}

	// Step 2: acquire lock.
	lockMgr := lock.NewManager(filepath.Join(o.cacheDir, "update.lock"), logger)
	token, err := lockMgr.Acquire()
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			return Skipped{Reason: ReasonLocked}, nil
		}
		return nil, &PermissionDeniedFailure{Detail: err.Error()}
	}
	defer func() {
		if relErr := token.Release(); relErr != nil {
			logger.Warn("failed to release update lock", "error", relErr)
		}
	}()

	if !o.handler.ConfirmCheck() {
		return Skipped{Reason: ReasonDeclined}, nil
	}

	// Step 3: probe platform.
	plat, err := platform.Current()
	if err != nil {
		return nil, &PlatformUnsupportedFailure{Detail: err.Error()}
	}

	// Step 4: fetch release descriptor with bounded retry.
	var descriptor release.Descriptor
	fetchErr := retry.Execute(ctx, retry.Default(), logger, func() error {
		d, err := o.release.LatestRelease(ctx, o.cfg.RepoOwner, o.cfg.RepoName)
		if err != nil {
			var fe *release.FetchError
			if errors.As(err, &fe) && !fe.Retryable {
				return retry.Permanent(err)
			}
			var pe *release.ParseError
			if errors.As(err, &pe) {
				return retry.Permanent(err)
			}
			return err
		}
		descriptor = d
		return nil
	})
	if fetchErr != nil {
		var pe *release.ParseError
		if errors.As(fetchErr, &pe) {
			return nil, &ParseFailure{Detail: pe.Reason}
		}
		var fe *release.FetchError
		if errors.As(fetchErr, &fe) {
			return nil, &ReleaseFetchFailure{Status: fe.Status, Detail: fetchErr.Error(), Retryable_: fe.Retryable}
		}
		return nil, &ReleaseFetchFailure{Detail: fetchErr.Error(), Retryable_: true}
	}

	// Step 5: parse remote version and compare.
	remote, err := semver.Parse(descriptor.VersionTag)
	if err != nil {
		return nil, &ParseFailure{Detail: err.Error()}
	}

	// Step 6: up-to-date check.
	if !semver.IsNewer(remote, o.currentVersion) {
		o.handler.ReportUpToDate(o.currentVersion)
		return UpToDate{}, nil
	}

	o.handler.ReportUpdateAvailable(o.currentVersion, remote)

	// Step 7: bad-version check.
	if o.bad.Contains(remote.String()) {
		return Skipped{Reason: ReasonBadVersion}, nil
	}

	// Step 8: asset selection.
	selected, err := asset.Select(plat, descriptor.Assets)
	if err != nil {
		return nil, &NoAssetForPlatformFailure{Pattern: plat.AssetPattern()}
	}

	// Step 9: confirm update.
	if !o.handler.ConfirmUpdate(remote) {
		return Skipped{Reason: ReasonDeclined}, nil
	}

	if err := os.MkdirAll(o.cfg.TempDir, 0o755); err != nil {
		return nil, &PermissionDeniedFailure{Detail: err.Error()}
	}
	ext := archiveExt(selected.Name)
	archivePath := filepath.Join(o.cfg.TempDir, fmt.Sprintf("%s-%s%s", o.programName, remote.String(), ext))
	stagingDir = filepath.Join(o.cfg.TempDir, fmt.Sprintf("%s-%s.stage", o.programName, remote.String()))
	defer func() {
		if err := os.Remove(archivePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove downloaded archive", "path", archivePath, "error", err)
		}
	}()

	// Step 10: download with progress.
	o.handler.ReportDownloadStarted(remote, selected.SizeBytes)
	downloadStart := time.Now()
	dlErr := o.download.Download(ctx, selected.DownloadURL, archivePath,
		func(p download.Progress) { o.handler.ReportProgress(p) },
		o.handler.CheckCancel,
	)
	o.metrics.DownloadDurationSec.Observe(time.Since(downloadStart).Seconds())
	if dlErr != nil {
		if errors.Is(dlErr, download.ErrCancelled) {
			return Skipped{Reason: ReasonDeclined}, nil
		}
		var de *download.Error
		if errors.As(dlErr, &de) {
			return nil, &DownloadFailure{Detail: de.Detail, Retryable_: de.Retryable}
		}
		return nil, &DownloadFailure{Detail: dlErr.Error(), Retryable_: true}
	}
	o.handler.ReportDownloadComplete()
	o.handler.FinishProgress()

	// Step 11: verify size, signature, and extract.
	if err := o.verifier.VerifySize(archivePath, selected.SizeBytes); err != nil {
		return nil, &VerificationFailure{Detail: "size"}
	}
	if err := o.verifier.VerifySignature(archivePath); err != nil {
		return nil, &VerificationFailure{Detail: "signature"}
	}
	binaryPath, err := o.verifier.ExtractTo(archivePath, stagingDir, o.programName)
	if err != nil {
		return nil, &VerificationFailure{Detail: err.Error()}
	}

	// Step 12: replace, with backup/health-check/rollback.
	o.handler.ReportInstallStarted()
	if err := o.replacer.Replace(o.executablePath, binaryPath, o.programName, o.currentVersion.String(), remote); err != nil {
		var re *replace.Error
		if errors.As(err, &re) {
			if re.RolledBack {
				o.metrics.BadVersionsTotal.Inc()
			}
			return nil, &ReplacementFailure{Detail: re.Detail, RolledBack: re.RolledBack}
		}
		return nil, &ReplacementFailure{Detail: err.Error(), RolledBack: false}
	}

	o.handler.ReportSuccess(remote)
	return Updated{NewVersion: remote.String()}, nil
}

func (o *Orchestrator) recordOutcome(out Outcome, failure Failure) {
	switch {
	case failure != nil:
		o.handler.ReportError(failure)
		o.metrics.AttemptsTotal.WithLabelValues("failure").Inc()
	case out == nil:
		o.metrics.AttemptsTotal.WithLabelValues("unknown").Inc()
	default:
		switch v := out.(type) {
		case Updated:
			o.metrics.AttemptsTotal.WithLabelValues("updated").Inc()
		case UpToDate:
			o.metrics.AttemptsTotal.WithLabelValues("up_to_date").Inc()
		case Skipped:
			o.handler.ReportSkipped(v.Reason)
			o.metrics.AttemptsTotal.WithLabelValues("skipped_" + v.Reason).Inc()
		}
	}
}

func archiveExt(assetName string) string {
	lower := strings.ToLower(assetName)
	if strings.HasSuffix(lower, ".tar.gz") {
		return ".tar.gz"
	}
	if strings.HasSuffix(lower, ".zip") {
		return ".zip"
	}
	return filepath.Ext(assetName)
}
