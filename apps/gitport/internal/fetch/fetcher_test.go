package fetch_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	githubadapter "github.com/iotacb/gitport/apps/gitport/internal/adapters/github"
	"github.com/iotacb/gitport/apps/gitport/internal/fetch"
	"github.com/iotacb/gitport/apps/gitport/internal/progress"
	"github.com/iotacb/gitport/pkg/logging"
)

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) Report(e progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) statuses() []progress.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]progress.Status, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Status)
	}
	return out
}

func newFetcher(t *testing.T) (*githubadapter.InMem, *recorder, *fetch.Fetcher) {
	t.Helper()
	gh := githubadapter.NewInMem()
	rec := &recorder{}
	return gh, rec, fetch.New(gh, rec, logging.Discard())
}

func TestFetch_WritesFile(t *testing.T) {
	gh, rec, f := newFetcher(t)
	gh.SetFile("acme", "demo", "a.txt", "abc")
	dest := filepath.Join(t.TempDir(), "a.txt")

	n, err := f.Fetch(context.Background(), githubadapter.DownloadURL("acme", "demo", "a.txt"), dest)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, []progress.Status{progress.StatusInProgress, progress.StatusSucceeded}, rec.statuses())
}

func TestFetch_OverwritesExistingFile(t *testing.T) {
	gh, _, f := newFetcher(t)
	gh.SetFile("acme", "demo", "a.txt", "abc")
	dest := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(dest, []byte("much longer previous content"), 0o644))

	_, err := f.Fetch(context.Background(), githubadapter.DownloadURL("acme", "demo", "a.txt"), dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFetch_SourceError_ReturnsDownloadError(t *testing.T) {
	gh, rec, f := newFetcher(t)
	gh.SetFile("acme", "demo", "a.txt", "abc")
	gh.FailOpen("acme", "demo", "a.txt", errors.New("connection reset"))
	dest := filepath.Join(t.TempDir(), "a.txt")

	_, err := f.Fetch(context.Background(), githubadapter.DownloadURL("acme", "demo", "a.txt"), dest)

	var dlErr *fetch.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, dest, dlErr.Path)
	assert.Equal(t, "request", dlErr.Op)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, []progress.Status{progress.StatusInProgress, progress.StatusFailed}, rec.statuses())

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_MissingDirectory_ReturnsCreateError(t *testing.T) {
	gh, _, f := newFetcher(t)
	gh.SetFile("acme", "demo", "a.txt", "abc")
	dest := filepath.Join(t.TempDir(), "nope", "a.txt")

	_, err := f.Fetch(context.Background(), githubadapter.DownloadURL("acme", "demo", "a.txt"), dest)

	var dlErr *fetch.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "create", dlErr.Op)
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n == 0 {
		return 0, errors.New("stream cut")
	}
	r.n--
	p[0] = 'x'
	return 1, nil
}

type readerOpener struct{ r io.Reader }

func (o readerOpener) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(o.r), nil
}

func TestFetch_MidStreamError_ReturnsWriteError(t *testing.T) {
	f := fetch.New(readerOpener{r: &failingReader{n: 4}}, nil, logging.Discard())
	dest := filepath.Join(t.TempDir(), "big.bin")

	n, err := f.Fetch(context.Background(), "https://example.invalid/big.bin", dest)

	var dlErr *fetch.DownloadError
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "write", dlErr.Op)
	assert.Equal(t, int64(4), n)

	// The partial file stays on disk.
	got, readErr := os.ReadFile(dest)
	require.NoError(t, readErr)
	assert.Equal(t, "xxxx", string(got))
}

func TestFetch_StreamsLargeBody(t *testing.T) {
	body := strings.Repeat("0123456789", 1<<16)
	f := fetch.New(readerOpener{r: strings.NewReader(body)}, nil, logging.Discard())
	dest := filepath.Join(t.TempDir(), "large.txt")

	n, err := f.Fetch(context.Background(), "https://example.invalid/large.txt", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), info.Size())
}
