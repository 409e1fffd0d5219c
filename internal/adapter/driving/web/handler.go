package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bobholt/wptdash/internal/application"
	"github.com/bobholt/wptdash/internal/domain/port/driven"
)

var pullPage = template.Must(template.New("pull").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{- if .Missing}}
<h1>Pull Request {{.ID}}</h1>
<p>No information recorded for this pull request.</p>
{{- else}}
<h1>#{{.Number}}: {{.PullTitle}}</h1>
<p>State: {{.State}}</p>
{{- if .Builds}}
<table>
<tr><th>Build Number</th><th>Status</th></tr>
{{- range .Builds}}
<tr><td>{{.Number}}</td><td>{{.Status}}</td></tr>
{{- end}}
</table>
{{- else}}
<p>No builds have been reported for this pull request.</p>
{{- end}}
<div>{{.Summary}}</div>
{{- end}}
</body>
</html>
`))

type buildRow struct {
	Number int
	Status string
}

type pullPageData struct {
	Title     string
	ID        int64
	Missing   bool
	Number    int
	PullTitle string
	State     string
	Builds    []buildRow
	Summary   template.HTML
}

// Handler serves the dashboard pages.
type Handler struct {
	summaries driven.SummaryStore
	logger    *slog.Logger
}

// NewHandler creates a web Handler.
func NewHandler(summaries driven.SummaryStore, logger *slog.Logger) *Handler {
	return &Handler{
		summaries: summaries,
		logger:    logger,
	}
}

// RegisterRoutes registers the dashboard routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /pull/{id}", h.PullRequest)
}

// Index serves the landing page.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("wpt dashboard"))
}

// PullRequest serves the detail page for one pull request, addressed by its
// GitHub id. An id with no recorded pull request still renders a page, so
// stale links do not 404.
func (h *Handler) PullRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "pull request id must be an integer", http.StatusBadRequest)
		return
	}

	summary, err := h.summaries.PullRequestByID(r.Context(), id)
	if err != nil {
		h.logger.Error("loading pull request page", "id", id, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	data := pullPageData{
		Title:   "wpt dashboard",
		ID:      id,
		Missing: summary == nil,
	}

	if summary != nil {
		rendered, err := RenderMarkdown(application.RenderSummary(summary))
		if err != nil {
			h.logger.Error("rendering pull request summary", "id", id, "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		data.Number = summary.PullRequest.Number
		data.PullTitle = summary.PullRequest.Title
		data.State = string(summary.PullRequest.State)
		data.Summary = rendered
		for _, bd := range summary.Builds {
			data.Builds = append(data.Builds, buildRow{
				Number: bd.Build.Number,
				Status: string(bd.Build.Status),
			})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pullPage.Execute(w, data); err != nil {
		h.logger.Error("executing pull request template", "id", id, "error", err)
	}
}
