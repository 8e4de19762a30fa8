package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func odooServer(loginStatus int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/web/login":
			w.WriteHeader(loginStatus)
		case "/web/database/selector":
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "fresh"})
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckHealthyStoresToken(t *testing.T) {
	server := odooServer(http.StatusOK)
	defer server.Close()
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "session")

	_, err := execute(t,
		"--url", server.URL,
		"--session-file", tokenPath,
		"--restore-lock", filepath.Join(dir, "restore.lock"),
	)
	require.NoError(t, err)

	data, err := os.ReadFile(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestCheckUnhealthyExitsWithError(t *testing.T) {
	server := odooServer(http.StatusInternalServerError)
	defer server.Close()
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "session")
	require.NoError(t, os.WriteFile(tokenPath, []byte("old"), 0o600))

	_, err := execute(t,
		"--url", server.URL,
		"--session-file", tokenPath,
		"--restore-lock", filepath.Join(dir, "restore.lock"),
	)
	assert.ErrorIs(t, err, errUnhealthy)
}

func TestCheckRejectsInvalidURL(t *testing.T) {
	_, err := execute(t, "--url", "ftp://odoo", "--session-file", filepath.Join(t.TempDir(), "s"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errUnhealthy)
}

func TestCheckRejectsArguments(t *testing.T) {
	_, err := execute(t, "extra")
	assert.Error(t, err)
}

func TestInitSessionSubcommand(t *testing.T) {
	server := odooServer(http.StatusOK)
	defer server.Close()
	tokenPath := filepath.Join(t.TempDir(), "session")

	_, err := execute(t, "init-session", "--url", server.URL, "--session-file", tokenPath)
	require.NoError(t, err)

	data, err := os.ReadFile(tokenPath)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestVersionSubcommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}
