// Package mode provides the two concrete front ends the update engine
// drives during a pipeline run: a Console handler for direct CLI
// invocation and an Embedded handler for hosting inside an interactive
// terminal application's own event loop.
package mode

import (
	"github.com/shelfterm/shelfterm/internal/download"
	"github.com/shelfterm/shelfterm/internal/semver"
)

// Failure is the subset of the orchestrator's UpdateFailure taxonomy a
// Handler needs to render: a human description, optional recovery
// guidance, and whether the UI may usefully offer Retry.
type Failure interface {
	Message() string
	Recovery() string
	Retryable() bool
}

// Handler is the capability surface the orchestrator consumes to drive
// user interaction, independent of whether a human or an embedding UI
// is on the other end (spec.md §4.10). The generic report_status of
// spec.md §4.10 is refined here into one method per pipeline milestone
// so that each maps onto exactly one variant of the embedded-mode
// message union in spec.md §6.3; Console renders each as a status line.
type Handler interface {
	// ConfirmCheck gates the network check in interactive flows.
	ConfirmCheck() bool

	// ConfirmUpdate gates the download in interactive flows.
	ConfirmUpdate(newVersion semver.Version) bool

	// CheckCancel polls, without blocking, for a late cancellation.
	CheckCancel() bool

	ReportCheckStarted()
	ReportUpToDate(current semver.Version)
	ReportUpdateAvailable(current, newVersion semver.Version)
	ReportDownloadStarted(newVersion semver.Version, totalBytes int64)
	ReportProgress(p download.Progress)
	ReportDownloadComplete()
	ReportInstallStarted()
	ReportSuccess(newVersion semver.Version)
	ReportError(failure Failure)
	ReportSkipped(reason string)
	FinishProgress()
}
