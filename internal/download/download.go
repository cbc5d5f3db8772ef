// Package download streams a release asset to a destination file with
// progress reporting, bounded retries, and partial-file cleanup.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/shelfterm/shelfterm/internal/retry"
)

// ChunkSize bounds peak memory independent of asset size. 256 KiB sits
// within the 32 KiB-1 MiB band the spec allows.
const ChunkSize = 256 * 1024

// PerReadTimeout bounds how long a single chunk read may take before the
// download is considered stalled.
const PerReadTimeout = 20 * time.Second

// Progress reports download state to a caller-supplied callback, invoked
// at most once per chunk boundary.
type Progress struct {
	DownloadedBytes int64
	TotalBytes      int64
	Percentage      float64
}

// ProgressFunc receives progress updates and should return quickly; it is
// called from the download's hot loop.
type ProgressFunc func(Progress)

// CancelFunc is polled once per chunk; a true result aborts the download.
type CancelFunc func() bool

// Error wraps a download failure with whether the caller may usefully
// retry.
type Error struct {
	Detail    string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("download failed: %s", e.Detail)
}

// ErrCancelled is returned when CancelFunc reported cancellation mid-download.
var ErrCancelled = &Error{Detail: "cancelled", Retryable: false}

// Downloader streams one asset at a time to a destination path.
type Downloader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// New builds a Downloader. The underlying client enforces the 60s overall
// timeout from the concurrency model; the per-read timeout is layered on
// top via a timer around each Read call.
func New(logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Download streams url to destination, retrying transient failures per
// the shared retry policy (base 1s, factor 2, full-jitter cap 10s, max 3
// retries). On any failure path the partial destination file is removed
// before returning.
func (d *Downloader) Download(ctx context.Context, url, destination string, onProgress ProgressFunc, cancelled CancelFunc) error {
	return retry.Execute(ctx, retry.Default(), d.logger, func() error {
		return d.attempt(ctx, url, destination, onProgress, cancelled)
	})
}

func (d *Downloader) attempt(ctx context.Context, url, destination string, onProgress ProgressFunc, cancelled CancelFunc) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(&Error{Detail: err.Error(), Retryable: false})
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &Error{Detail: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &Error{Detail: fmt.Sprintf("server error: status %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests {
		return &Error{Detail: fmt.Sprintf("status %d", resp.StatusCode), Retryable: true}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return retry.Permanent(&Error{Detail: fmt.Sprintf("status %d", resp.StatusCode), Retryable: false})
	}

	out, err := os.Create(destination)
	if err != nil {
		return retry.Permanent(&Error{Detail: err.Error(), Retryable: false})
	}
	defer func() {
		out.Close()
		if err != nil {
			os.Remove(destination)
		}
	}()

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, ChunkSize)

	for {
		if cancelled != nil && cancelled() {
			return retry.Permanent(ErrCancelled)
		}

		n, readErr := readWithDeadline(ctx, resp.Body, buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return retry.Permanent(&Error{Detail: werr.Error(), Retryable: false})
			}
			downloaded += int64(n)
			if onProgress != nil {
				pct := float64(0)
				if total > 0 {
					pct = float64(downloaded) / float64(total) * 100
				}
				onProgress(Progress{DownloadedBytes: downloaded, TotalBytes: total, Percentage: pct})
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return &Error{Detail: readErr.Error(), Retryable: true}
		}
	}

	d.logger.Info("download complete", "url", url, "bytes", downloaded)
	return nil
}

// readWithDeadline reads into buf, failing the read if it takes longer
// than PerReadTimeout or ctx is done first. net/http only exposes a
// whole-request timeout, so per-read enforcement is layered on here.
func readWithDeadline(ctx context.Context, r io.Reader, buf []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)

	go func() {
		n, err := r.Read(buf)
		done <- result{n, err}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-time.After(PerReadTimeout):
		return 0, fmt.Errorf("read deadline exceeded after %s", PerReadTimeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
