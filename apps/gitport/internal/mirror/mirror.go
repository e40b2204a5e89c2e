// Package mirror copies a remote repository subtree into a local directory.
//
// The walk is driven by a FIFO worklist of pending directories rather than
// recursion, so stack depth does not grow with tree depth. Directories are
// listed one at a time; file entries are handed to a bounded pool of
// fetchers. A directory's local folder always exists before any fetch for
// one of its entries starts.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
	"github.com/iotacb/gitport/apps/gitport/internal/progress"
)

const instrName = "github.com/iotacb/gitport/mirror"

// Fetcher streams one remote file to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, dest string) (int64, error)
}

// Options bound the walk. The zero value is one worker, no depth limit and
// no per-request timeout.
type Options struct {
	Workers        int           // concurrent file fetches; <= 1 is sequential
	MaxDepth       int           // directory nesting below the root; 0 = unlimited
	RequestTimeout time.Duration // per directory listing; 0 = none
	FailFast       bool          // cancel the walk on the first failure
}

// Result summarises a run.
type Result struct {
	Dirs     int // local directories ensured, including the root
	Files    int // files written
	Bytes    int64
	Skipped  int // entries that were neither fetched nor failed
	Failures []error
}

// Mirror walks a remote tree through a Lister and writes files through a
// Fetcher.
type Mirror struct {
	lister   gitrepo.Lister
	fetcher  Fetcher
	reporter progress.Reporter
	log      *slog.Logger
	opts     Options

	filesDone metric.Int64Counter
	failures  metric.Int64Counter
}

// New creates a Mirror. A nil reporter discards status events.
func New(lister gitrepo.Lister, fetcher Fetcher, reporter progress.Reporter, log *slog.Logger, opts Options) *Mirror {
	if reporter == nil {
		reporter = progress.Nop
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	m := otel.Meter(instrName)
	filesDone, _ := m.Int64Counter("gitport.mirror.files",
		metric.WithDescription("Files mirrored"))
	failures, _ := m.Int64Counter("gitport.mirror.failures",
		metric.WithDescription("Listing, path and download failures"))

	return &Mirror{
		lister:    lister,
		fetcher:   fetcher,
		reporter:  reporter,
		log:       log,
		opts:      opts,
		filesDone: filesDone,
		failures:  failures,
	}
}

// job is one pending directory on the worklist.
type job struct {
	remote string
	local  string
	depth  int
}

// run holds the mutable state of one Run call.
type run struct {
	m      *Mirror
	loc    gitrepo.Location
	cancel context.CancelFunc

	mu     sync.Mutex
	result Result
}

// Run mirrors the subtree at loc into localRoot. It returns a *MirrorError
// wrapping the first failure when any entry could not be mirrored; the
// Result is populated either way.
func (m *Mirror) Run(ctx context.Context, loc gitrepo.Location, localRoot string) (*Result, error) {
	ctx, span := otel.Tracer(instrName).Start(ctx, "Mirror",
		trace.WithAttributes(
			attribute.String("repo.owner", loc.Owner),
			attribute.String("repo.name", loc.Repo),
			attribute.String("repo.path", loc.Path),
		),
	)
	defer span.End()

	root, err := filepath.Abs(localRoot)
	if err != nil {
		return &Result{}, &MirrorError{Err: fmt.Errorf("resolve %s: %w", localRoot, err), Failures: 1}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &run{m: m, loc: loc, cancel: cancel}

	var g errgroup.Group
	g.SetLimit(m.opts.Workers)

	queue := []job{{remote: loc.Path, local: root}}
	for len(queue) > 0 {
		if ctx.Err() != nil {
			break
		}
		j := queue[0]
		queue = queue[1:]
		queue = append(queue, r.visit(ctx, &g, j)...)
	}
	_ = g.Wait() //nolint:errcheck // workers record failures instead of returning them

	if err := ctx.Err(); err != nil && len(r.result.Failures) == 0 {
		r.fail(ctx, fmt.Errorf("mirror %s: %w", loc, err))
	}

	res := r.result
	m.log.Info("mirror finished",
		"repo", loc.String(),
		"dirs", res.Dirs,
		"files", res.Files,
		"bytes", res.Bytes,
		"skipped", res.Skipped,
		"failures", len(res.Failures),
	)
	if len(res.Failures) > 0 {
		span.RecordError(res.Failures[0])
		return &res, &MirrorError{Err: res.Failures[0], Failures: len(res.Failures)}
	}
	return &res, nil
}

// visit ensures j's local directory, lists it, schedules its files and
// returns its subdirectories. A listing failure aborts the subtree.
func (r *run) visit(ctx context.Context, g *errgroup.Group, j job) []job {
	if err := os.MkdirAll(j.local, 0o755); err != nil {
		r.fail(ctx, fmt.Errorf("create directory %s: %w", j.local, err))
		return nil
	}
	r.mu.Lock()
	r.result.Dirs++
	r.mu.Unlock()

	entries, err := r.list(ctx, j.remote)
	if err != nil {
		r.fail(ctx, err)
		return nil
	}

	var next []job
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !safeName(e.Name) {
			r.fail(ctx, &PathError{Name: e.Name, Dir: j.remote})
			continue
		}
		if seen[e.Name] {
			r.m.log.Warn("duplicate entry skipped", "dir", j.remote, "name", e.Name)
			r.skip()
			continue
		}
		seen[e.Name] = true

		local := filepath.Join(j.local, e.Name)
		remote := e.Path
		if remote == "" {
			remote = path.Join(j.remote, e.Name)
		}

		switch e.Kind {
		case gitrepo.KindDir:
			if limit := r.m.opts.MaxDepth; limit > 0 && j.depth+1 > limit {
				r.fail(ctx, &DepthError{Path: remote, Limit: limit})
				continue
			}
			next = append(next, job{remote: remote, local: local, depth: j.depth + 1})
		default:
			if e.DownloadURL == "" {
				r.m.log.Warn("entry has no download url, skipped", "path", remote)
				r.skip()
				continue
			}
			r.schedule(ctx, g, e.DownloadURL, local)
		}
	}
	return next
}

func (r *run) list(ctx context.Context, dir string) ([]gitrepo.DirEntry, error) {
	ctx, span := otel.Tracer(instrName).Start(ctx, "ListDir",
		trace.WithAttributes(attribute.String("dir.path", dir)),
	)
	defer span.End()

	if t := r.m.opts.RequestTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	entries, err := r.m.lister.ListDir(ctx, r.loc, dir)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("dir.entries", len(entries)))
	r.m.log.Debug("listed directory", "path", dir, "entries", len(entries))
	return entries, nil
}

func (r *run) schedule(ctx context.Context, g *errgroup.Group, sourceURL, dest string) {
	r.m.reporter.Report(progress.Event{Path: dest, Status: progress.StatusPending})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			r.skip()
			r.m.reporter.Report(progress.Event{Path: dest, Status: progress.StatusSkipped, Err: err})
			return nil
		}

		// No deadline here: the transport bounds connect and headers, the
		// body streams for as long as it needs.
		n, err := r.m.fetcher.Fetch(ctx, sourceURL, dest)
		if err != nil {
			r.fail(ctx, err)
			return nil
		}
		r.m.filesDone.Add(ctx, 1)
		r.mu.Lock()
		r.result.Files++
		r.result.Bytes += n
		r.mu.Unlock()
		return nil
	})
}

func (r *run) fail(ctx context.Context, err error) {
	r.m.failures.Add(ctx, 1)
	r.m.log.Error("mirror entry failed", "error", err)
	r.mu.Lock()
	r.result.Failures = append(r.result.Failures, err)
	r.mu.Unlock()
	if r.m.opts.FailFast {
		r.cancel()
	}
}

func (r *run) skip() {
	r.mu.Lock()
	r.result.Skipped++
	r.mu.Unlock()
}

// safeName reports whether a remote entry name can be joined onto a local
// directory without leaving it.
func safeName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return false
	}
	return filepath.IsLocal(name)
}
