package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDownloadSuccess(t *testing.T) {
	payload := strings.Repeat("x", 500_000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "asset.bin")

	var lastProgress Progress
	d := New(nil)
	err := d.Download(context.Background(), srv.URL, dest, func(p Progress) {
		lastProgress = p
	}, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != payload {
		t.Errorf("downloaded content mismatch, got %d bytes want %d", len(data), len(payload))
	}
	if lastProgress.DownloadedBytes != int64(len(payload)) {
		t.Errorf("final progress DownloadedBytes = %d, want %d", lastProgress.DownloadedBytes, len(payload))
	}
}

func TestDownloadNonRetryable4xxFailsImmediately(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "asset.bin")

	d := New(nil)
	err := d.Download(context.Background(), srv.URL, dest, nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable 404, got %d", attempts)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("partial file should have been removed")
	}
}

func TestDownloadRetriesOn5xxThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "asset.bin")

	d := New(nil)
	err := d.Download(context.Background(), srv.URL, dest, nil, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if attempts < 2 {
		t.Errorf("expected at least 2 attempts, got %d", attempts)
	}
}

func TestDownloadCancellationCleansUpPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", ChunkSize*3)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "asset.bin")

	calls := 0
	cancelled := func() bool {
		calls++
		return calls > 1
	}

	d := New(nil)
	err := d.Download(context.Background(), srv.URL, dest, nil, cancelled)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("partial file should have been removed after cancellation")
	}
}
