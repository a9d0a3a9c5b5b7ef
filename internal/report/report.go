// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders the selected papers into the HTML and plain-text
// digest bodies and builds the mail subject.
package report

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/pdiddy/paper-digest/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	htmlTemplate = "digest.html.tmpl"
	textTemplate = "digest.txt.tmpl"
)

// Header is the per-run context rendered above the papers.
type Header struct {
	Subject     string
	WindowStart string
	WindowEnd   string
}

// data is what the templates execute against.
type data struct {
	Header
	Papers []*types.Candidate
}

var funcs = map[string]any{
	"join":  strings.Join,
	"inc":   func(i int) int { return i + 1 },
	"label": roleLabel,
	"link":  paperLink,
}

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New(htmlTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+htmlTemplate))
	textTmpl = texttemplate.Must(texttemplate.New(textTemplate).Funcs(funcs).ParseFS(templateFS, "templates/"+textTemplate))
)

// Render executes both digest templates for papers.
func Render(papers []*types.Candidate, h Header) (html, text string, err error) {
	d := data{Header: h, Papers: papers}

	var hb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, d); err != nil {
		return "", "", fmt.Errorf("rendering html digest: %w", err)
	}
	var tb bytes.Buffer
	if err := textTmpl.Execute(&tb, d); err != nil {
		return "", "", fmt.Errorf("rendering text digest: %w", err)
	}
	return hb.String(), tb.String(), nil
}

// Subject returns the mail subject line for n papers selected at now.
func Subject(prefix string, now time.Time, n int) string {
	return fmt.Sprintf("%s — %s — %d papers", prefix, now.Format("2006-01"), n)
}

// WindowBounds returns the selection window ending at now, in UTC.
func WindowBounds(now time.Time, windowDays int) (start, end time.Time) {
	end = now.UTC()
	return end.AddDate(0, 0, -windowDays), end
}

// NewHeader builds the header for a run at now.
func NewHeader(prefix string, now time.Time, windowDays, n int) Header {
	start, end := WindowBounds(now, windowDays)
	return Header{
		Subject:     Subject(prefix, now, n),
		WindowStart: start.Format(time.RFC3339),
		WindowEnd:   end.Format(time.RFC3339),
	}
}

func roleLabel(r types.Role) string {
	if r == "" {
		return "Paper"
	}
	s := string(r)
	return strings.ToUpper(s[:1]) + s[1:]
}

// paperLink picks the best landing page for a paper.
func paperLink(c *types.Candidate) string {
	for _, key := range []string{"abs_url", "openreview_url", "pdf_url"} {
		if u := c.Links[key]; u != "" {
			return u
		}
	}
	return ""
}
