package github_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformgithub "github.com/iotacb/gitport/apps/gitport/internal/platform/github"
)

func TestNewTokenClient_AttachesBearerAndBaseURL(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := platformgithub.NewTokenClient("ghp_test", srv.URL, time.Second)
	assert.Equal(t, srv.URL+"/", c.BaseURL.String())

	resp, err := c.Client().Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "Bearer ghp_test", gotAuth)
}

func TestNewTokenClient_SlowBodyOutlivesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("first "))
		w.(http.Flusher).Flush()
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte("second"))
	}))
	defer srv.Close()

	c := platformgithub.NewTokenClient("ghp_test", srv.URL, 100*time.Millisecond)

	resp, err := c.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "first second", string(body))
}

func TestNewTokenClient_StalledHeadersTimeOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := platformgithub.NewTokenClient("ghp_test", srv.URL, 50*time.Millisecond)

	resp, err := c.Client().Get(srv.URL)
	if err == nil {
		_ = resp.Body.Close()
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestNewHTTPClient_NoWholeRequestTimeout(t *testing.T) {
	c := platformgithub.NewHTTPClient(time.Minute)
	assert.Zero(t, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, time.Minute, tr.ResponseHeaderTimeout)
}
