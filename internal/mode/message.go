package mode

import "github.com/shelfterm/shelfterm/internal/semver"

// OutboundMessage is the discriminated union the engine sends to an
// embedding UI (spec.md §6.3). Each variant is a distinct type rather
// than a tagged struct so the UI's receive loop can type-switch on it.
type OutboundMessage interface {
	outbound()
}

type CheckStarted struct{}

type UpToDate struct {
	Current semver.Version
}

type UpdateAvailable struct {
	Current, New semver.Version
}

type ConfirmationRequired struct {
	New semver.Version
}

type DownloadStarted struct {
	Version    semver.Version
	TotalBytes int64
}

type DownloadProgress struct {
	DownloadedBytes, TotalBytes int64
	Percentage                  float64
}

type DownloadComplete struct{}

type InstallStarted struct{}

type InstallComplete struct {
	New semver.Version
}

type ErrorMessage struct {
	Message   string
	Recovery  string
	Retryable bool
}

type SkippedMessage struct {
	Reason string
}

func (CheckStarted) outbound()         {}
func (UpToDate) outbound()             {}
func (UpdateAvailable) outbound()      {}
func (ConfirmationRequired) outbound() {}
func (DownloadStarted) outbound()      {}
func (DownloadProgress) outbound()     {}
func (DownloadComplete) outbound()     {}
func (InstallStarted) outbound()       {}
func (InstallComplete) outbound()      {}
func (ErrorMessage) outbound()         {}
func (SkippedMessage) outbound()       {}

// Response is the inbound (UI → engine) reply to a prompt, or a
// cancellation signal (spec.md §6.3).
type Response int

const (
	Confirmed Response = iota
	Declined
	Retry
	Dismissed
)

func (r Response) String() string {
	switch r {
	case Confirmed:
		return "confirmed"
	case Declined:
		return "declined"
	case Retry:
		return "retry"
	case Dismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}
