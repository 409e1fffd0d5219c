// Package httphandler is the HTTP driving adapter serving the webhook API.
package httphandler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bobholt/wptdash/internal/application"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

// maxPayloadBytes caps webhook bodies; GitHub and Travis payloads are far
// smaller than this.
const maxPayloadBytes = 4 << 20

// PullIngestor accepts a GitHub pull_request webhook body.
type PullIngestor interface {
	IngestPullRequest(ctx context.Context, body []byte) error
}

// BuildIngestor accepts a Travis build webhook payload and its signature.
type BuildIngestor interface {
	IngestBuild(ctx context.Context, payload []byte, signature string) error
}

// Handler serves the webhook ingestion endpoints.
type Handler struct {
	pulls  PullIngestor
	builds BuildIngestor
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(pulls PullIngestor, builds BuildIngestor, logger *slog.Logger) *Handler {
	return &Handler{
		pulls:  pulls,
		builds: builds,
		logger: logger,
	}
}

// RegisterRoutes registers the webhook API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("POST /api/pull", h.AddPullRequest)
	mux.HandleFunc("POST /api/build", h.AddBuild)
	mux.HandleFunc("GET /api/health", h.Health)
}

// AddPullRequest ingests a GitHub pull_request webhook.
func (h *Handler) AddPullRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body failed")
		return
	}

	h.respond(w, h.pulls.IngestPullRequest(r.Context(), body))
}

// AddBuild ingests a Travis build webhook: a form-encoded "payload" field
// holding the JSON event, plus the Signature header.
func (h *Handler) AddBuild(w http.ResponseWriter, r *http.Request) {
	payload := r.FormValue("payload")
	if payload == "" {
		writeError(w, http.StatusBadRequest, "payload form field is required")
		return
	}

	h.respond(w, h.builds.IngestBuild(r.Context(), []byte(payload), r.Header.Get("Signature")))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// respond maps the ingestion error taxonomy to HTTP statuses. A nil error is
// a plain 200 OK, matching what both webhook senders expect.
func (h *Handler) respond(w http.ResponseWriter, err error) {
	if err == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}

	var validationErr *application.ValidationError
	var verifyErr *driven.VerificationError
	var commentErr *driven.CommentError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &verifyErr):
		writeError(w, verifyErr.Status, verifyErr.Message)
	case errors.Is(err, application.ErrRepositoryMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, application.ErrPullRequestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &commentErr):
		// The ingestion itself committed; only the comment side effect
		// failed. The upstream body and status pass through unchanged.
		writeError(w, commentErr.Status, commentErr.Body)
	default:
		h.logger.Error("ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
