// Package github implements the gitrepo.Client port using the official
// go-github library. Wire it up with an authenticated *github.Client from
// apps/gitport/internal/platform/github.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v75/github"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
)

// Adapter wraps a go-github client and implements gitrepo.Client.
type Adapter struct {
	gh *gogithub.Client
	// anon downloads from hosts that must not see the API credential.
	anon *http.Client
}

// New creates an Adapter from an authenticated *github.Client. anon serves
// downloads from untrusted hosts; nil uses a default client.
func New(gh *gogithub.Client, anon *http.Client) *Adapter {
	if anon == nil {
		anon = &http.Client{}
	}
	return &Adapter{gh: gh, anon: anon}
}

// ListDir returns the immediate children of dirPath from the contents API.
func (a *Adapter) ListDir(ctx context.Context, loc gitrepo.Location, dirPath string) ([]gitrepo.DirEntry, error) {
	var opts *gogithub.RepositoryContentGetOptions
	if loc.Ref != "" {
		opts = &gogithub.RepositoryContentGetOptions{Ref: loc.Ref}
	}

	file, dir, resp, err := a.gh.Repositories.GetContents(ctx, loc.Owner, loc.Repo, dirPath, opts)
	if err != nil {
		rerr := &gitrepo.RemoteError{Owner: loc.Owner, Repo: loc.Repo, Path: dirPath, Err: err}
		if resp != nil {
			rerr.StatusCode = resp.StatusCode
		}
		return nil, rerr
	}
	if file != nil {
		return nil, &gitrepo.RemoteError{
			Owner: loc.Owner, Repo: loc.Repo, Path: dirPath,
			Err: errors.New("path is a file, not a directory"),
		}
	}
	if dir == nil {
		return nil, &gitrepo.RemoteError{
			Owner: loc.Owner, Repo: loc.Repo, Path: dirPath,
			Err: errors.New("empty directory listing"),
		}
	}

	entries := make([]gitrepo.DirEntry, 0, len(dir))
	for _, item := range dir {
		if item == nil || item.Name == nil {
			return nil, &gitrepo.RemoteError{
				Owner: loc.Owner, Repo: loc.Repo, Path: dirPath,
				Err: errors.New("listing item without a name"),
			}
		}
		entry := gitrepo.DirEntry{
			Name: item.GetName(),
			Path: item.GetPath(),
			Size: int64(item.GetSize()),
		}
		if item.GetType() == "dir" {
			entry.Kind = gitrepo.KindDir
		} else {
			entry.Kind = gitrepo.KindFile
			entry.DownloadURL = item.GetDownloadURL()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Open starts a streaming GET of downloadURL. The API credential is only
// attached when the URL points at the API host or GitHub's raw content hosts.
func (a *Adapter) Open(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	u, err := url.Parse(downloadURL)
	if err != nil {
		return nil, fmt.Errorf("parse download url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported download url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	client := a.anon
	if a.trusted(u) {
		client = a.gh.Client()
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", redact(u), err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close() //nolint:errcheck // body is discarded
		return nil, fmt.Errorf("GET %s returned %d", redact(u), resp.StatusCode)
	}
	return resp.Body, nil
}

func (a *Adapter) trusted(u *url.URL) bool {
	host := u.Hostname()
	if a.gh.BaseURL != nil && host == a.gh.BaseURL.Hostname() {
		return true
	}
	return host == "githubusercontent.com" || strings.HasSuffix(host, ".githubusercontent.com")
}

// redact drops the query string, which carries a short-lived token for
// private repositories.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
