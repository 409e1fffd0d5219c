// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
)

// defaultTravisAPIURL is the public Travis API; overridable for enterprise
// installs and tests.
const defaultTravisAPIURL = "https://api.travis-ci.org"

// Config holds the application configuration loaded from environment variables.
type Config struct {
	GitHubToken  string
	GitHubOrg    string
	GitHubRepo   string
	TravisAPIURL string
	ListenAddr   string
	DBPath       string
}

// Load reads configuration from environment variables and returns a validated
// Config. WPTDASH_GITHUB_TOKEN, WPTDASH_GITHUB_ORG, and WPTDASH_GITHUB_REPO
// are required: they scope build ingestion and authorize the summary comments.
// Optional variables with defaults: WPTDASH_LISTEN_ADDR (127.0.0.1:8080),
// WPTDASH_DB_PATH (wptdash.db), WPTDASH_TRAVIS_API_URL (the public Travis API).
func Load() (*Config, error) {
	token := os.Getenv("WPTDASH_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("WPTDASH_GITHUB_TOKEN is required")
	}

	org := os.Getenv("WPTDASH_GITHUB_ORG")
	if org == "" {
		return nil, fmt.Errorf("WPTDASH_GITHUB_ORG is required")
	}

	repo := os.Getenv("WPTDASH_GITHUB_REPO")
	if repo == "" {
		return nil, fmt.Errorf("WPTDASH_GITHUB_REPO is required")
	}

	travisAPIURL := defaultTravisAPIURL
	if v, ok := os.LookupEnv("WPTDASH_TRAVIS_API_URL"); ok && v != "" {
		travisAPIURL = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("WPTDASH_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "wptdash.db"
	if v, ok := os.LookupEnv("WPTDASH_DB_PATH"); ok {
		dbPath = v
	}

	return &Config{
		GitHubToken:  token,
		GitHubOrg:    org,
		GitHubRepo:   repo,
		TravisAPIURL: travisAPIURL,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
	}, nil
}
