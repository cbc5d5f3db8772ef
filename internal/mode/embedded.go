package mode

import (
	"log/slog"
	"sync"

	"github.com/shelfterm/shelfterm/internal/download"
	"github.com/shelfterm/shelfterm/internal/semver"
)

// outboundBufferSize bounds the outbound message queue, mirroring the
// teacher's buffered event channel (there it absorbed broadcast fan-out
// bursts; here it absorbs the UI's render-loop cadence).
const outboundBufferSize = 64

// Embedded is the Handler used when the update engine runs as a
// background worker inside a host terminal application: it speaks
// spec.md §6.3's message protocol over a pair of channels instead of
// stdio.
type Embedded struct {
	outbound chan OutboundMessage
	inbound  chan Response
	logger   *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewEmbedded builds an Embedded handler and returns it alongside the
// receive-only outbound channel and send-only inbound channel the host
// UI reads from and writes to.
func NewEmbedded(logger *slog.Logger) (*Embedded, <-chan OutboundMessage, chan<- Response) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Embedded{
		outbound: make(chan OutboundMessage, outboundBufferSize),
		inbound:  make(chan Response),
		logger:   logger.With("component", "mode_embedded"),
		closed:   make(chan struct{}),
	}
	return e, e.outbound, e.inbound
}

// Close marks the outbound side shut down; subsequent sends become
// silent no-ops (spec.md §4.10, "closed outbound channel").
//
// The outbound channel itself is never closed by the engine — only the
// receiving UI knows when it has stopped reading — so "closed" here is
// a cooperative flag rather than a literal channel close, which avoids
// a send-on-closed-channel panic from a concurrent sender.
func (e *Embedded) Close() {
	e.closeOnce.Do(func() { close(e.closed) })
}

func (e *Embedded) send(msg OutboundMessage) {
	select {
	case <-e.closed:
		return
	default:
	}
	select {
	case e.outbound <- msg:
	case <-e.closed:
	default:
		e.logger.Warn("outbound message channel full, dropping message", "message_type", typeName(msg))
	}
}

func typeName(msg OutboundMessage) string {
	switch msg.(type) {
	case CheckStarted:
		return "CheckStarted"
	case UpToDate:
		return "UpToDate"
	case UpdateAvailable:
		return "UpdateAvailable"
	case ConfirmationRequired:
		return "ConfirmationRequired"
	case DownloadStarted:
		return "DownloadStarted"
	case DownloadProgress:
		return "DownloadProgress"
	case DownloadComplete:
		return "DownloadComplete"
	case InstallStarted:
		return "InstallStarted"
	case InstallComplete:
		return "InstallComplete"
	case ErrorMessage:
		return "Error"
	case SkippedMessage:
		return "Skipped"
	default:
		return "unknown"
	}
}

// ConfirmCheck never prompts in embedded mode: the message protocol has
// no pre-check confirmation variant, so the check phase always proceeds
// and the UI learns of it via the CheckStarted message.
func (e *Embedded) ConfirmCheck() bool {
	e.send(CheckStarted{})
	return true
}

// ConfirmUpdate sends ConfirmationRequired and blocks on the inbound
// channel for the UI's reply. A closed inbound channel at receive is
// interpreted as Declined (spec.md §4.10).
func (e *Embedded) ConfirmUpdate(newVersion semver.Version) bool {
	e.send(ConfirmationRequired{New: newVersion})
	resp, ok := <-e.inbound
	if !ok {
		return false
	}
	return resp == Confirmed
}

// CheckCancel uses a non-blocking receive: no pending response means no
// cancellation observed yet. A closed inbound channel is treated as a
// standing cancellation.
func (e *Embedded) CheckCancel() bool {
	select {
	case resp, ok := <-e.inbound:
		if !ok {
			return true
		}
		return resp == Declined
	default:
		return false
	}
}

func (e *Embedded) ReportCheckStarted() {
	e.send(CheckStarted{})
}

func (e *Embedded) ReportUpToDate(current semver.Version) {
	e.send(UpToDate{Current: current})
}

func (e *Embedded) ReportUpdateAvailable(current, newVersion semver.Version) {
	e.send(UpdateAvailable{Current: current, New: newVersion})
}

func (e *Embedded) ReportDownloadStarted(newVersion semver.Version, totalBytes int64) {
	e.send(DownloadStarted{Version: newVersion, TotalBytes: totalBytes})
}

func (e *Embedded) ReportProgress(p download.Progress) {
	e.send(DownloadProgress{
		DownloadedBytes: p.DownloadedBytes,
		TotalBytes:      p.TotalBytes,
		Percentage:      p.Percentage,
	})
}

func (e *Embedded) ReportDownloadComplete() {
	e.send(DownloadComplete{})
}

func (e *Embedded) ReportInstallStarted() {
	e.send(InstallStarted{})
}

func (e *Embedded) FinishProgress() {
	// No distinct wire message: DownloadComplete/InstallComplete already
	// mark the end of a progress sequence for the UI.
}

func (e *Embedded) ReportSuccess(newVersion semver.Version) {
	e.send(InstallComplete{New: newVersion})
}

func (e *Embedded) ReportError(failure Failure) {
	e.send(ErrorMessage{
		Message:   failure.Message(),
		Recovery:  failure.Recovery(),
		Retryable: failure.Retryable(),
	})
}

func (e *Embedded) ReportSkipped(reason string) {
	e.send(SkippedMessage{Reason: reason})
}
