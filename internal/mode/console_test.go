package mode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shelfterm/shelfterm/internal/semver"
)

type fakeFailure struct {
	msg, recovery string
	retryable     bool
}

func (f fakeFailure) Message() string  { return f.msg }
func (f fakeFailure) Recovery() string { return f.recovery }
func (f fakeFailure) Retryable() bool  { return f.retryable }

func TestConsoleNonInteractiveSkipsPrompts(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, strings.NewReader(""), true)

	if !c.ConfirmCheck() {
		t.Error("expected ConfirmCheck to return true in non-interactive mode")
	}
	if !c.ConfirmUpdate(semver.Version{Major: 1}) {
		t.Error("expected ConfirmUpdate to return true in non-interactive mode")
	}
}

func TestConsoleInteractiveReadsYes(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, strings.NewReader("y\n"), false)

	if !c.ConfirmUpdate(semver.Version{Major: 1}) {
		t.Error("expected ConfirmUpdate to return true for 'y' input")
	}
}

func TestConsoleInteractiveReadsNo(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, strings.NewReader("n\n"), false)

	if c.ConfirmUpdate(semver.Version{Major: 1}) {
		t.Error("expected ConfirmUpdate to return false for 'n' input")
	}
}

func TestConsoleReportErrorWritesRecovery(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, strings.NewReader(""), true)

	c.ReportError(fakeFailure{msg: "download failed", recovery: "check your network connection", retryable: true})

	got := errOut.String()
	if !strings.Contains(got, "download failed") || !strings.Contains(got, "check your network connection") {
		t.Errorf("unexpected error output: %q", got)
	}
}

func TestConsoleCheckCancelAlwaysFalse(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, strings.NewReader(""), false)
	if c.CheckCancel() {
		t.Error("console has no cancellation source, expected false")
	}
}
