// Package gitrepo defines the ports the mirror depends on to read a remote
// repository tree: one-level directory listings and raw file streams.
package gitrepo

import (
	"context"
	"io"
	"path"
)

// Location identifies the remote subtree to mirror. Path is empty for the
// repository root. Ref is empty for the default branch.
type Location struct {
	Host  string
	Owner string
	Repo  string
	Ref   string
	Path  string
}

// String renders the location as owner/repo[/path][@ref].
func (l Location) String() string {
	s := l.Owner + "/" + l.Repo
	if l.Path != "" {
		s = path.Join(s, l.Path)
	}
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}

// EntryKind distinguishes files from directories in a listing.
type EntryKind int

const (
	KindFile EntryKind = iota
	KindDir
)

func (k EntryKind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// DirEntry is a file or directory returned by a git hosting provider directory listing.
type DirEntry struct {
	Name        string
	Kind        EntryKind
	Path        string // path relative to the repository root
	DownloadURL string // empty for directories
	Size        int64
}

// Lister returns the immediate children of a remote directory. Order is
// whatever the provider returns.
type Lister interface {
	ListDir(ctx context.Context, loc Location, dirPath string) ([]DirEntry, error)
}

// Opener opens a streaming read of a file's raw bytes. Callers must close
// the returned reader.
type Opener interface {
	Open(ctx context.Context, downloadURL string) (io.ReadCloser, error)
}

// Client is the full port implemented by provider adapters.
type Client interface {
	Lister
	Opener
}
