package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
)

const inmemScheme = "inmem://"

// InMem is an in-memory gitrepo.Client for unit tests.
type InMem struct {
	mu       sync.Mutex
	files    map[string]string             // "owner/repo/path" -> content
	extra    map[string][]gitrepo.DirEntry // "owner/repo/dir" -> injected entries
	listErrs map[string]error              // "owner/repo/dir" -> listing failure
	openErrs map[string]error              // "owner/repo/path" -> download failure
	listed   []string
	opened   []string
	onOpen   func(downloadURL string)
}

// NewInMem creates an empty InMem client.
func NewInMem() *InMem {
	return &InMem{
		files:    make(map[string]string),
		extra:    make(map[string][]gitrepo.DirEntry),
		listErrs: make(map[string]error),
		openErrs: make(map[string]error),
	}
}

// SetFile seeds a file in the in-memory store. Parent directories are implied.
func (m *InMem) SetFile(owner, repo, path, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[owner+"/"+repo+"/"+path] = content
}

// InjectEntry appends a raw entry to the listing of dir, bypassing name
// derivation. Used to simulate malformed provider responses.
func (m *InMem) InjectEntry(owner, repo, dir string, e gitrepo.DirEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := owner + "/" + repo + "/" + dir
	m.extra[key] = append(m.extra[key], e)
}

// FailList makes ListDir for dir return err.
func (m *InMem) FailList(owner, repo, dir string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrs[owner+"/"+repo+"/"+dir] = err
}

// FailOpen makes Open for the file at path return err.
func (m *InMem) FailOpen(owner, repo, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[owner+"/"+repo+"/"+path] = err
}

// OnOpen registers a hook called at the start of every Open.
func (m *InMem) OnOpen(fn func(downloadURL string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOpen = fn
}

// Listed returns the directory paths passed to ListDir, in call order.
func (m *InMem) Listed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.listed))
	copy(out, m.listed)
	return out
}

// Opened returns the download URLs passed to Open, in call order.
func (m *InMem) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.opened))
	copy(out, m.opened)
	return out
}

// DownloadURL returns the URL InMem hands out for the file at path.
func DownloadURL(owner, repo, path string) string {
	return inmemScheme + owner + "/" + repo + "/" + path
}

// ListDir returns the immediate children of dirPath, sorted by name.
func (m *InMem) ListDir(_ context.Context, loc gitrepo.Location, dirPath string) ([]gitrepo.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, dirPath)

	repoKey := loc.Owner + "/" + loc.Repo + "/"
	if err, ok := m.listErrs[repoKey+dirPath]; ok {
		return nil, &gitrepo.RemoteError{Owner: loc.Owner, Repo: loc.Repo, Path: dirPath, Err: err}
	}

	prefix := repoKey
	if dirPath != "" {
		prefix += dirPath + "/"
	}
	seen := make(map[string]bool)
	var entries []gitrepo.DirEntry
	for key, content := range m.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		parts := strings.SplitN(rest, "/", 2)
		name := parts[0]
		if seen[name] {
			continue
		}
		seen[name] = true
		entryPath := joinRemote(dirPath, name)
		if len(parts) > 1 {
			entries = append(entries, gitrepo.DirEntry{Name: name, Kind: gitrepo.KindDir, Path: entryPath})
			continue
		}
		entries = append(entries, gitrepo.DirEntry{
			Name:        name,
			Kind:        gitrepo.KindFile,
			Path:        entryPath,
			DownloadURL: DownloadURL(loc.Owner, loc.Repo, entryPath),
			Size:        int64(len(content)),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	entries = append(entries, m.extra[repoKey+dirPath]...)

	if len(entries) == 0 {
		return nil, &gitrepo.RemoteError{
			Owner: loc.Owner, Repo: loc.Repo, Path: dirPath, StatusCode: 404,
			Err: errors.New("not found"),
		}
	}
	return entries, nil
}

// Open returns a reader over the seeded content behind downloadURL.
func (m *InMem) Open(_ context.Context, downloadURL string) (io.ReadCloser, error) {
	m.mu.Lock()
	hook := m.onOpen
	m.opened = append(m.opened, downloadURL)
	m.mu.Unlock()

	if hook != nil {
		hook(downloadURL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := strings.CutPrefix(downloadURL, inmemScheme)
	if !ok {
		return nil, fmt.Errorf("unsupported download url %q", downloadURL)
	}
	if err, ok := m.openErrs[key]; ok {
		return nil, err
	}
	content, ok := m.files[key]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", key)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func joinRemote(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
