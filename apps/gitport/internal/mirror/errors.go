package mirror

import "fmt"

// PathError is returned for a remote entry whose name cannot be joined
// safely under its local directory.
type PathError struct {
	Name string
	Dir  string // remote directory the entry was listed in
}

// Error implements the error interface.
func (e *PathError) Error() string {
	dir := e.Dir
	if dir == "" {
		dir = "/"
	}
	return fmt.Sprintf("rejected entry %q in %s: name escapes the import directory", e.Name, dir)
}

// DepthError is returned for a directory nested deeper than the configured
// limit. Its subtree is not walked.
type DepthError struct {
	Path  string
	Limit int
}

// Error implements the error interface.
func (e *DepthError) Error() string {
	return fmt.Sprintf("directory %s exceeds max depth %d", e.Path, e.Limit)
}

// MirrorError wraps the first failure of a run. Failures counts every
// failure recorded, including the first.
type MirrorError struct {
	Err      error
	Failures int
}

// Error implements the error interface.
func (e *MirrorError) Error() string {
	if e.Failures <= 1 {
		return fmt.Sprintf("mirror failed: %v", e.Err)
	}
	return fmt.Sprintf("mirror failed with %d errors, first: %v", e.Failures, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }
