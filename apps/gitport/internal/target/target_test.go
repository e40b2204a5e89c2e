package target_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotacb/gitport/apps/gitport/internal/gitrepo"
	"github.com/iotacb/gitport/apps/gitport/internal/target"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want gitrepo.Location
	}{
		{
			name: "repository root",
			raw:  "https://github.com/iotacb/gitport",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport"},
		},
		{
			name: "trailing slash and whitespace",
			raw:  "  https://github.com/iotacb/gitport/  ",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport"},
		},
		{
			name: "git suffix",
			raw:  "https://github.com/iotacb/gitport.git",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport"},
		},
		{
			name: "tree ref with sub-path",
			raw:  "https://github.com/iotacb/gitport/tree/main/docs/img",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport", Ref: "main", Path: "docs/img"},
		},
		{
			name: "tree ref only",
			raw:  "https://github.com/iotacb/gitport/tree/v1.2.0",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport", Ref: "v1.2.0"},
		},
		{
			name: "unrelated trailing segments ignored",
			raw:  "https://github.com/iotacb/gitport/issues/12",
			want: gitrepo.Location{Host: "github.com", Owner: "iotacb", Repo: "gitport"},
		},
		{
			name: "enterprise host",
			raw:  "http://git.example.com:8080/team/tool",
			want: gitrepo.Location{Host: "git.example.com:8080", Owner: "team", Repo: "tool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := target.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		errSubstr string
	}{
		{name: "empty", raw: "", errSubstr: "url is empty"},
		{name: "no scheme", raw: "github.com/iotacb/gitport", errSubstr: "scheme"},
		{name: "ssh scheme", raw: "ssh://github.com/iotacb/gitport", errSubstr: "scheme"},
		{name: "missing repo", raw: "https://github.com/iotacb", errSubstr: "expected /<owner>/<repo>"},
		{name: "host only", raw: "https://github.com", errSubstr: "expected /<owner>/<repo>"},
		{name: "dot-dot owner", raw: "https://github.com/../gitport", errSubstr: "invalid owner"},
		{name: "bare git suffix", raw: "https://github.com/iotacb/.git", errSubstr: "invalid repository"},
		{name: "traversal in sub-path", raw: "https://github.com/iotacb/gitport/tree/main/../x", errSubstr: "may not contain"},
		{name: "blob url", raw: "https://github.com/iotacb/gitport/blob/main/README.md", errSubstr: "use a tree URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := target.Parse(tt.raw)
			require.Error(t, err)

			var inputErr *target.InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLocation_String(t *testing.T) {
	loc := gitrepo.Location{Owner: "o", Repo: "r", Ref: "dev", Path: "a/b"}
	assert.Equal(t, "o/r/a/b@dev", loc.String())
}
