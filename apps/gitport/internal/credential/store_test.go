package credential_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iotacb/gitport/apps/gitport/internal/credential"
	"github.com/iotacb/gitport/pkg/logging"
)

type fakePrompter struct {
	answers []string
	calls   int
}

func (p *fakePrompter) PromptSecret(string) (string, error) {
	p.calls++
	if len(p.answers) == 0 {
		return "", nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func newStore(t *testing.T, answers ...string) (*credential.Store, *fakePrompter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), credential.FileName)
	p := &fakePrompter{answers: answers}
	return credential.NewStore(path, p, logging.Discard()), p, path
}

func TestEnsure_PromptsAndPersists(t *testing.T) {
	s, p, path := newStore(t, "  ghp_abc  ")

	cred, err := s.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", cred.Token)
	assert.Equal(t, 1, p.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GITHUB_TOKEN=ghp_abc", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsure_RoundTrip_NoReprompt(t *testing.T) {
	s, p, _ := newStore(t, "ghp_abc", "ghp_other")

	first, err := s.Ensure(context.Background())
	require.NoError(t, err)
	second, err := s.Ensure(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, p.calls)
}

func TestEnsure_ReadsExistingRecord(t *testing.T) {
	s, p, path := newStore(t)
	require.NoError(t, os.WriteFile(path, []byte("GITHUB_TOKEN= ghp_existing \n"), 0o600))

	cred, err := s.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghp_existing", cred.Token)
	assert.Zero(t, p.calls)
}

func TestEnsure_RecordWithoutKey_Prompts(t *testing.T) {
	s, p, path := newStore(t, "ghp_new")
	require.NoError(t, os.WriteFile(path, []byte("SOMETHING_ELSE=1\n"), 0o600))

	cred, err := s.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghp_new", cred.Token)
	assert.Equal(t, 1, p.calls)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "GITHUB_TOKEN=ghp_new", string(data))
}

func TestEnsure_EmptyAnswer_ReturnsAuthError(t *testing.T) {
	s, _, path := newStore(t, "   ")

	_, err := s.Ensure(context.Background())

	var authErr *credential.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "no valid token")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsure_EmptyStoredValue_ReturnsAuthError(t *testing.T) {
	s, p, path := newStore(t, "ghp_unused")
	require.NoError(t, os.WriteFile(path, []byte("GITHUB_TOKEN=\n"), 0o600))

	_, err := s.Ensure(context.Background())

	var authErr *credential.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "--reset")
	assert.Zero(t, p.calls)
}

func TestEnsure_NoPrompter_ReturnsAuthError(t *testing.T) {
	path := filepath.Join(t.TempDir(), credential.FileName)
	s := credential.NewStore(path, nil, logging.Discard())

	_, err := s.Ensure(context.Background())

	var authErr *credential.AuthError
	require.True(t, errors.As(err, &authErr))
}

func TestReset_Idempotent(t *testing.T) {
	s, _, path := newStore(t, "ghp_abc")
	_, err := s.Ensure(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	require.NoError(t, s.Reset())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReset_ThenEnsure_Reprompts(t *testing.T) {
	s, p, _ := newStore(t, "ghp_one", "ghp_two")
	_, err := s.Ensure(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.Reset())

	cred, err := s.Ensure(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ghp_two", cred.Token)
	assert.Equal(t, 2, p.calls)
}

func TestDefaultPath_NextToExecutable(t *testing.T) {
	path, err := credential.DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, credential.FileName, filepath.Base(path))

	exe, err := os.Executable()
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(exe)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(resolved), filepath.Dir(path))
}
