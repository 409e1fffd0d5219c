package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every WPTDASH_ env var that Load() reads.
var allConfigKeys = []string{
	"WPTDASH_GITHUB_TOKEN",
	"WPTDASH_GITHUB_ORG",
	"WPTDASH_GITHUB_REPO",
	"WPTDASH_TRAVIS_API_URL",
	"WPTDASH_LISTEN_ADDR",
	"WPTDASH_DB_PATH",
}

// isolateConfigEnv saves and unsets all WPTDASH_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WPTDASH_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("WPTDASH_GITHUB_ORG", "w3c")
	t.Setenv("WPTDASH_GITHUB_REPO", "web-platform-tests")
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("WPTDASH_TRAVIS_API_URL", "https://travis.example.test")
	t.Setenv("WPTDASH_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("WPTDASH_DB_PATH", "/tmp/test.db")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, "w3c", cfg.GitHubOrg)
	assert.Equal(t, "web-platform-tests", cfg.GitHubRepo)
	assert.Equal(t, "https://travis.example.test", cfg.TravisAPIURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.travis-ci.org", cfg.TravisAPIURL)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "wptdash.db", cfg.DBPath)
}

func TestLoad_MissingToken(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WPTDASH_GITHUB_ORG", "w3c")
	t.Setenv("WPTDASH_GITHUB_REPO", "web-platform-tests")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WPTDASH_GITHUB_TOKEN")
}

func TestLoad_MissingOrg(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WPTDASH_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("WPTDASH_GITHUB_REPO", "web-platform-tests")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WPTDASH_GITHUB_ORG")
}

func TestLoad_MissingRepo(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WPTDASH_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("WPTDASH_GITHUB_ORG", "w3c")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WPTDASH_GITHUB_REPO")
}

func TestLoad_EmptyTravisURLUsesDefault(t *testing.T) {
	isolateConfigEnv(t)
	setRequiredEnv(t)
	t.Setenv("WPTDASH_TRAVIS_API_URL", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "https://api.travis-ci.org", cfg.TravisAPIURL)
}
