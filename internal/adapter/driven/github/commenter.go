// Package github implements the Commenter port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Commenter = (*Commenter)(nil)

// Commenter posts summary comments to pull requests of a single repository.
type Commenter struct {
	gh    *gh.Client
	owner string
	repo  string
}

// NewCommenter creates a Commenter with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewCommenter(token, owner, repo string) *Commenter {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Commenter{
		gh:    client,
		owner: owner,
		repo:  repo,
	}
}

// NewCommenterWithHTTPClient creates a Commenter against a custom base URL,
// intended for tests with an httptest server.
func NewCommenterWithHTTPClient(httpClient *http.Client, baseURL, owner, repo string) (*Commenter, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Commenter{
		gh:    client,
		owner: owner,
		repo:  repo,
	}, nil
}

// PostComment creates a top-level comment on the pull request with the given
// number. Pull request comments are issue comments in the GitHub API, and the
// API addresses them by number, not id. A failed post is reported as a
// *driven.CommentError carrying the upstream status and body. This client
// never retries.
func (c *Commenter) PostComment(ctx context.Context, prNumber int, body string) error {
	_, _, err := c.gh.Issues.CreateComment(ctx, c.owner, c.repo, prNumber, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err == nil {
		return nil
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &driven.CommentError{
			Status: ghErr.Response.StatusCode,
			Body:   ghErr.Message,
		}
	}

	return fmt.Errorf("posting comment on %s/%s#%d: %w", c.owner, c.repo, prNumber, err)
}
