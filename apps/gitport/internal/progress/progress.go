// Package progress carries per-file status transitions from the fetcher to
// whatever is showing them to the operator.
package progress

import "sync"

// Status is the state of a single file download.
type Status int

const (
	// StatusPending means the file is scheduled but not started.
	StatusPending Status = iota
	// StatusInProgress means bytes are flowing.
	StatusInProgress
	// StatusSucceeded means the local file was written, flushed and closed.
	StatusSucceeded
	// StatusFailed means the download or the write failed.
	StatusFailed
	// StatusSkipped means the run was cancelled before the download started.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusInProgress:
		return "in-progress"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// IsFinished reports whether s is terminal.
func (s Status) IsFinished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Event is one status transition for the file at Path.
type Event struct {
	Path   string
	Status Status
	Bytes  int64 // set on StatusSucceeded
	Err    error // set on StatusFailed and StatusSkipped
}

// Reporter receives status transitions. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report implements Reporter.
func (f ReporterFunc) Report(e Event) { f(e) }

// Nop discards every event.
var Nop Reporter = ReporterFunc(func(Event) {})

// Multi fans an event out to several reporters in order.
func Multi(rs ...Reporter) Reporter {
	return ReporterFunc(func(e Event) {
		for _, r := range rs {
			r.Report(e)
		}
	})
}

// Tally counts terminal events.
type Tally struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	bytes     int64
}

// Report implements Reporter.
func (t *Tally) Report(e Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e.Status {
	case StatusSucceeded:
		t.succeeded++
		t.bytes += e.Bytes
	case StatusFailed:
		t.failed++
	}
}

// Totals returns succeeded and failed file counts and bytes written.
func (t *Tally) Totals() (succeeded, failed int, bytes int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.succeeded, t.failed, t.bytes
}
