package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobholt/wptdash/internal/application"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

type fakePullIngestor struct {
	err    error
	bodies [][]byte
}

func (f *fakePullIngestor) IngestPullRequest(_ context.Context, body []byte) error {
	f.bodies = append(f.bodies, body)
	return f.err
}

type fakeBuildIngestor struct {
	err        error
	payloads   [][]byte
	signatures []string
}

func (f *fakeBuildIngestor) IngestBuild(_ context.Context, payload []byte, signature string) error {
	f.payloads = append(f.payloads, payload)
	f.signatures = append(f.signatures, signature)
	return f.err
}

func newTestServer(pulls *fakePullIngestor, builds *fakeBuildIngestor) *httptest.Server {
	logger := slog.New(slog.DiscardHandler)
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler(pulls, builds, logger))
	return httptest.NewServer(ApplyMiddleware(mux, logger))
}

func TestHandler_AddPullRequest_OK(t *testing.T) {
	pulls := &fakePullIngestor{}
	srv := newTestServer(pulls, &fakeBuildIngestor{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/pull", "application/json", strings.NewReader(`{"zen": "ok"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pulls.bodies, 1)
	assert.JSONEq(t, `{"zen": "ok"}`, string(pulls.bodies[0]))
}

func TestHandler_AddBuild_OK(t *testing.T) {
	builds := &fakeBuildIngestor{}
	srv := newTestServer(&fakePullIngestor{}, builds)
	defer srv.Close()

	form := url.Values{"payload": {`{"id": 100}`}}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/build", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Signature", "c2ln")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, builds.payloads, 1)
	assert.Equal(t, `{"id": 100}`, string(builds.payloads[0]))
	assert.Equal(t, []string{"c2ln"}, builds.signatures)
}

func TestHandler_AddBuild_MissingPayload(t *testing.T) {
	builds := &fakeBuildIngestor{}
	srv := newTestServer(&fakePullIngestor{}, builds)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/build", "application/x-www-form-urlencoded", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, builds.payloads)
}

func TestHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			"validation error",
			&application.ValidationError{Violations: []string{"pull_request.id is required"}},
			http.StatusBadRequest,
		},
		{
			"repository mismatch",
			application.ErrRepositoryMismatch,
			http.StatusForbidden,
		},
		{
			"pull request not found",
			application.ErrPullRequestNotFound,
			http.StatusNotFound,
		},
		{
			"verification failure",
			&driven.VerificationError{Status: http.StatusUnauthorized, Message: "payload signature does not match"},
			http.StatusUnauthorized,
		},
		{
			"comment failure passes through",
			&driven.CommentError{Status: http.StatusBadGateway, Body: "bad gateway"},
			http.StatusBadGateway,
		},
		{
			"unexpected error",
			errors.New("disk full"),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&fakePullIngestor{err: tt.err}, &fakeBuildIngestor{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/pull", "application/json", strings.NewReader(`{}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestHandler_Health(t *testing.T) {
	srv := newTestServer(&fakePullIngestor{}, &fakeBuildIngestor{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&fakePullIngestor{}, &fakeBuildIngestor{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/pull")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
