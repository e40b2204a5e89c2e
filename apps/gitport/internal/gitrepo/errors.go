package gitrepo

import "fmt"

// RemoteError is returned when a listing or download request fails or
// returns data that cannot be used.
type RemoteError struct {
	Owner      string
	Repo       string
	Path       string
	StatusCode int // zero when no response was received
	Err        error
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	p := e.Path
	if p == "" {
		p = "/"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("list %s/%s %s: status %d: %v", e.Owner, e.Repo, p, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("list %s/%s %s: %v", e.Owner, e.Repo, p, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }
