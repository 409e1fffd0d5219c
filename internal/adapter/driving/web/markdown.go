// Package web serves the HTML dashboard pages.
package web

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(ghtml.WithUnsafe()),
)

var markdownPolicy = bluemonday.UGCPolicy()

// RenderMarkdown converts GitHub-flavored markdown to sanitized HTML. The
// goldmark output is rendered unsafe and then passed through bluemonday, so
// raw HTML in the source survives only where the UGC policy allows it.
func RenderMarkdown(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return template.HTML(markdownPolicy.SanitizeBytes(buf.Bytes())), nil
}
