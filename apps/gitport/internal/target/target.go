// Package target turns an operator-supplied repository URL into a
// gitrepo.Location.
//
// Accepted shapes:
//
//	https://github.com/<owner>/<repo>
//	https://github.com/<owner>/<repo>.git
//	https://github.com/<owner>/<repo>/tree/<ref>/<path...>
//
// Blob URLs name a single file and are rejected. Anything else after the
// repository segment that is not a tree reference is ignored and the whole
// repository is mirrored.
package target

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
)

// InputError is returned when the repository URL cannot be parsed into an
// owner and repository.
type InputError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid repository url %q: %s", e.Input, e.Reason)
}

// Parse validates raw and extracts host, owner, repo and the optional ref and
// sub-path.
func Parse(raw string) (gitrepo.Location, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: "url is empty"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: "missing host"}
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: "expected /<owner>/<repo>"}
	}

	owner := segments[0]
	repo := strings.TrimSuffix(segments[1], ".git")
	if !validSegment(owner) {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: fmt.Sprintf("invalid owner %q", owner)}
	}
	if !validSegment(repo) {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: fmt.Sprintf("invalid repository %q", segments[1])}
	}

	loc := gitrepo.Location{Host: u.Host, Owner: owner, Repo: repo}

	rest := segments[2:]
	if len(rest) >= 1 && rest[0] == "blob" {
		return gitrepo.Location{}, &InputError{Input: raw, Reason: "blob URLs name a single file; use a tree URL"}
	}
	if len(rest) >= 2 && rest[0] == "tree" {
		loc.Ref = rest[1]
		for _, s := range rest[2:] {
			if s == ".." || s == "." {
				return gitrepo.Location{}, &InputError{Input: raw, Reason: "path may not contain . or .. segments"}
			}
		}
		loc.Path = path.Join(rest[2:]...)
	}

	return loc, nil
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `\:`)
}
