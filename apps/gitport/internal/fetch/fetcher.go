// Package fetch streams a single remote file to a local path.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
	"github.com/iotacb/gitport/apps/gitport/internal/progress"
)

const instrName = "github.com/iotacb/gitport/fetch"

// DownloadError is returned when the transfer of one file fails. Path is the
// local destination.
type DownloadError struct {
	Path string
	Op   string // "request", "create", "write" or "close"
	Err  error
}

// Error implements the error interface.
func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Fetcher copies bytes from an Opener into local files.
type Fetcher struct {
	src      gitrepo.Opener
	reporter progress.Reporter
	log      *slog.Logger
	perm     os.FileMode

	bytes    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a Fetcher. A nil reporter discards status events.
func New(src gitrepo.Opener, reporter progress.Reporter, log *slog.Logger) *Fetcher {
	if reporter == nil {
		reporter = progress.Nop
	}
	m := otel.Meter(instrName)
	bytes, _ := m.Int64Counter("gitport.fetch.bytes",
		metric.WithDescription("Bytes written to local files"),
		metric.WithUnit("By"))
	duration, _ := m.Float64Histogram("gitport.fetch.duration",
		metric.WithDescription("Single file download duration in milliseconds"),
		metric.WithUnit("ms"))

	return &Fetcher{
		src:      src,
		reporter: reporter,
		log:      log,
		perm:     0o644,
		bytes:    bytes,
		duration: duration,
	}
}

// Fetch streams sourceURL into dest, truncating any existing file. It
// returns the number of bytes written. Success is only reported once the
// file has been synced and closed.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, dest string) (int64, error) {
	ctx, span := otel.Tracer(instrName).Start(ctx, "Fetch",
		trace.WithAttributes(attribute.String("file.path", dest)),
	)
	defer span.End()

	start := time.Now()
	f.reporter.Report(progress.Event{Path: dest, Status: progress.StatusInProgress})

	n, err := f.copy(ctx, sourceURL, dest)
	f.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		f.log.Debug("download failed", "path", dest, "error", err)
		f.reporter.Report(progress.Event{Path: dest, Status: progress.StatusFailed, Err: err})
		return n, err
	}

	f.bytes.Add(ctx, n)
	span.SetAttributes(attribute.Int64("file.bytes", n))
	f.log.Debug("downloaded file", "path", dest, "bytes", n)
	f.reporter.Report(progress.Event{Path: dest, Status: progress.StatusSucceeded, Bytes: n})
	return n, nil
}

func (f *Fetcher) copy(ctx context.Context, sourceURL, dest string) (int64, error) {
	body, err := f.src.Open(ctx, sourceURL)
	if err != nil {
		return 0, &DownloadError{Path: dest, Op: "request", Err: err}
	}
	defer body.Close() //nolint:errcheck // read side, nothing to flush

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.perm)
	if err != nil {
		return 0, &DownloadError{Path: dest, Op: "create", Err: err}
	}

	n, err := io.Copy(out, body)
	if err != nil {
		_ = out.Close() //nolint:errcheck // the copy error is the one worth reporting
		return n, &DownloadError{Path: dest, Op: "write", Err: err}
	}
	if err := out.Sync(); err != nil {
		_ = out.Close() //nolint:errcheck // the sync error is the one worth reporting
		return n, &DownloadError{Path: dest, Op: "write", Err: err}
	}
	if err := out.Close(); err != nil {
		return n, &DownloadError{Path: dest, Op: "close", Err: err}
	}
	return n, nil
}
