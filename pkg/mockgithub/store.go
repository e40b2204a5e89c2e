// Package mockgithub is an in-memory stand-in for the slice of the GitHub
// REST API that gitport consumes: directory listings from
// GET /repos/:owner/:repo/contents/*path and raw file downloads.
//
// It backs the apps/mock-github binary for local runs and the httptest
// servers in adapter and CLI tests.
package mockgithub

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Entry is one item of a contents API directory listing.
type Entry struct {
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	Type        string  `json:"type"` // "file" or "dir"
	Size        int     `json:"size"`
	DownloadURL *string `json:"download_url"`
}

// Store holds file content keyed by "owner/repo" then path.
type Store struct {
	mu       sync.RWMutex
	files    map[string]map[string]string // repo key -> path -> content
	extra    map[string][]Entry           // "owner/repo:dir" -> injected entries
	listFail map[string]int               // "owner/repo:dir" -> status code
	rawFail  map[string]int               // "owner/repo:path" -> status code
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		files:    make(map[string]map[string]string),
		extra:    make(map[string][]Entry),
		listFail: make(map[string]int),
		rawFail:  make(map[string]int),
	}
}

// SetFile seeds a file. Parent directories are implied by the path.
func (s *Store) SetFile(owner, repo, path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := owner + "/" + repo
	if s.files[key] == nil {
		s.files[key] = make(map[string]string)
	}
	s.files[key][strings.Trim(path, "/")] = content
}

// InjectEntry appends e verbatim to the listing of dir. download_url is
// resolved against the server when it is left nil for a file entry.
func (s *Store) InjectEntry(owner, repo, dir string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := owner + "/" + repo + ":" + dir
	s.extra[key] = append(s.extra[key], e)
}

// FailList makes the listing of dir answer with status.
func (s *Store) FailList(owner, repo, dir string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listFail[owner+"/"+repo+":"+dir] = status
}

// FailRaw makes the raw download of path answer with status.
func (s *Store) FailRaw(owner, repo, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawFail[owner+"/"+repo+":"+path] = status
}

// seedFile is the YAML shape accepted by LoadSeed:
//
//	repos:
//	  acme/demo:
//	    README.md: "hello"
//	    docs/guide.md: "..."
type seedFile struct {
	Repos map[string]map[string]string `yaml:"repos"`
}

// LoadSeed reads repositories from a YAML document.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}
	for full, files := range seed.Repos {
		owner, repo, ok := strings.Cut(full, "/")
		if !ok || owner == "" || repo == "" {
			return fmt.Errorf("seed repo %q: expected owner/repo", full)
		}
		for path, content := range files {
			s.SetFile(owner, repo, path, content)
		}
	}
	return nil
}

// LoadSeedFile is LoadSeed over the file at path.
func (s *Store) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only
	return s.LoadSeed(f)
}

// Repos returns the number of seeded repositories.
func (s *Store) Repos() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// listDir returns the immediate children of dirPath, mirroring GitHub's
// contents endpoint when :path is a directory. rawBase is prefixed to file
// paths to form download_url. The bool is false when nothing lives under
// dirPath.
func (s *Store) listDir(owner, repo, dirPath, rawBase string) ([]Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := owner + "/" + repo
	files := s.files[key]

	prefix := dirPath
	if prefix != "" {
		prefix += "/"
	}

	seen := map[string]bool{}
	entries := []Entry{}
	for filePath, content := range files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		rest := filePath[len(prefix):]
		idx := strings.Index(rest, "/")
		var name, entryType string
		if idx == -1 {
			name, entryType = rest, "file"
		} else {
			name, entryType = rest[:idx], "dir"
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		full := name
		if dirPath != "" {
			full = dirPath + "/" + name
		}
		e := Entry{Name: name, Path: full, Type: entryType}
		if entryType == "file" {
			u := rawBase + "/" + full
			e.DownloadURL = &u
			e.Size = len(content)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, e := range s.extra[key+":"+dirPath] {
		if e.Type == "file" && e.DownloadURL == nil {
			u := rawBase + "/" + e.Path
			e.DownloadURL = &u
		}
		entries = append(entries, e)
	}
	return entries, len(entries) > 0
}

func (s *Store) getFile(owner, repo, path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if files, ok := s.files[owner+"/"+repo]; ok {
		if content, ok := files[path]; ok {
			return content, true
		}
	}
	return "", false
}

func (s *Store) listFailure(owner, repo, dir string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listFail[owner+"/"+repo+":"+dir]
}

func (s *Store) rawFailure(owner, repo, path string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rawFail[owner+"/"+repo+":"+path]
}
