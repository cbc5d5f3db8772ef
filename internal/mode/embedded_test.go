package mode

import (
	"testing"
	"time"

	"github.com/shelfterm/shelfterm/internal/semver"
)

func TestEmbeddedConfirmUpdateConfirmed(t *testing.T) {
	e, out, in := NewEmbedded(nil)
	v := semver.Version{Major: 1, Minor: 2, Patch: 0}

	done := make(chan bool, 1)
	go func() { done <- e.ConfirmUpdate(v) }()

	msg := <-out
	cr, ok := msg.(ConfirmationRequired)
	if !ok || cr.New != v {
		t.Fatalf("expected ConfirmationRequired{%v}, got %#v", v, msg)
	}

	in <- Confirmed
	if !<-done {
		t.Error("expected ConfirmUpdate to return true on Confirmed")
	}
}

func TestEmbeddedConfirmUpdateDeclined(t *testing.T) {
	e, out, in := NewEmbedded(nil)
	v := semver.Version{Major: 1, Minor: 2, Patch: 0}

	done := make(chan bool, 1)
	go func() { done <- e.ConfirmUpdate(v) }()
	<-out
	in <- Declined

	if <-done {
		t.Error("expected ConfirmUpdate to return false on Declined")
	}
}

// spec.md §4.10: a closed inbound channel at a blocking receive is
// interpreted as Declined.
func TestEmbeddedConfirmUpdateClosedInboundIsDeclined(t *testing.T) {
	e, out, in := NewEmbedded(nil)
	v := semver.Version{Major: 1, Minor: 2, Patch: 0}

	done := make(chan bool, 1)
	go func() { done <- e.ConfirmUpdate(v) }()
	<-out
	close(in)

	if <-done {
		t.Error("expected ConfirmUpdate to return false when inbound is closed")
	}
}

func TestEmbeddedCheckCancelNonBlocking(t *testing.T) {
	e, _, in := NewEmbedded(nil)

	if e.CheckCancel() {
		t.Fatal("expected no cancellation with nothing pending")
	}

	go func() { in <- Declined }()
	// Give the send a moment to land before the receive.
	time.Sleep(10 * time.Millisecond)
	if !e.CheckCancel() {
		t.Error("expected CheckCancel to observe a pending Declined response")
	}
}

// spec.md §6.3: the outbound channel is lossy-on-closed.
func TestEmbeddedSendAfterCloseIsNoop(t *testing.T) {
	e, out, _ := NewEmbedded(nil)
	e.Close()
	e.ReportCheckStarted()

	select {
	case msg := <-out:
		t.Fatalf("expected no message after Close, got %#v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEmbeddedOutboundDropsWhenFull(t *testing.T) {
	e, out, _ := NewEmbedded(nil)
	for i := 0; i < outboundBufferSize; i++ {
		e.ReportCheckStarted()
	}
	// One more send should be dropped rather than block.
	done := make(chan struct{})
	go func() {
		e.ReportCheckStarted()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send on full outbound channel should not block")
	}

	drained := 0
	for {
		select {
		case <-out:
			drained++
		default:
			if drained != outboundBufferSize {
				t.Errorf("expected %d buffered messages, got %d", outboundBufferSize, drained)
			}
			return
		}
	}
}

func TestEmbeddedReportSuccessSendsInstallComplete(t *testing.T) {
	e, out, _ := NewEmbedded(nil)
	v := semver.Version{Major: 2, Minor: 0, Patch: 0}
	e.ReportSuccess(v)

	msg := <-out
	ic, ok := msg.(InstallComplete)
	if !ok || ic.New != v {
		t.Fatalf("expected InstallComplete{%v}, got %#v", v, msg)
	}
}
