package mode

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/shelfterm/shelfterm/internal/download"
	"github.com/shelfterm/shelfterm/internal/semver"
)

// Console is the Handler used when the update engine is driven directly
// from the command line: prompts go to stdin/stdout, and the
// non-interactive flag skips every prompt in favor of an implicit yes.
type Console struct {
	out           io.Writer
	errOut        io.Writer
	in            *bufio.Reader
	nonInteractive bool
}

// NewConsole builds a Console handler. out/errOut/in are typically
// os.Stdout, os.Stderr, and os.Stdin.
func NewConsole(out, errOut io.Writer, in io.Reader, nonInteractive bool) *Console {
	return &Console{
		out:            out,
		errOut:         errOut,
		in:             bufio.NewReader(in),
		nonInteractive: nonInteractive,
	}
}

// ConfirmCheck honors the non-interactive flag by skipping the prompt
// and returning true.
func (c *Console) ConfirmCheck() bool {
	return c.confirm("Check for updates now?")
}

// ConfirmUpdate honors the non-interactive flag by skipping the prompt
// and returning true.
func (c *Console) ConfirmUpdate(newVersion semver.Version) bool {
	return c.confirm(fmt.Sprintf("Install update %s?", newVersion.String()))
}

// CheckCancel never observes a late cancellation on the console: there
// is no concurrent input source to poll.
func (c *Console) CheckCancel() bool {
	return false
}

func (c *Console) ReportCheckStarted() {
	fmt.Fprintln(c.out, "checking for updates...")
}

func (c *Console) ReportUpToDate(current semver.Version) {
	fmt.Fprintf(c.out, "up to date (%s)\n", current.String())
}

func (c *Console) ReportUpdateAvailable(current, newVersion semver.Version) {
	fmt.Fprintf(c.out, "update available: %s -> %s\n", current.String(), newVersion.String())
}

func (c *Console) ReportDownloadStarted(newVersion semver.Version, totalBytes int64) {
	fmt.Fprintf(c.out, "downloading %s (%d bytes)...\n", newVersion.String(), totalBytes)
}

func (c *Console) ReportProgress(p download.Progress) {
	fmt.Fprintf(c.out, "\rdownloading... %.0f%% (%d/%d bytes)", p.Percentage, p.DownloadedBytes, p.TotalBytes)
}

func (c *Console) ReportDownloadComplete() {
	fmt.Fprintln(c.out, "download complete")
}

func (c *Console) ReportInstallStarted() {
	fmt.Fprintln(c.out, "installing update...")
}

func (c *Console) FinishProgress() {
	fmt.Fprintln(c.out)
}

func (c *Console) ReportSuccess(newVersion semver.Version) {
	fmt.Fprintf(c.out, "updated to %s\n", newVersion.String())
}

func (c *Console) ReportError(failure Failure) {
	fmt.Fprintf(c.errOut, "update failed: %s\n", failure.Message())
	if r := failure.Recovery(); r != "" {
		fmt.Fprintln(c.errOut, r)
	}
}

func (c *Console) ReportSkipped(reason string) {
	fmt.Fprintf(c.out, "skipped: %s\n", reason)
}

func (c *Console) confirm(prompt string) bool {
	if c.nonInteractive {
		return true
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
