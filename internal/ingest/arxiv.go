// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest implements the source adapters: the arXiv preprint feed,
// the Hugging Face trending feed, and OpenReview venues. Each adapter turns
// its source's wire format into types.Candidate records or a trending hit
// table and leaves all scoring to the selector.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/internal/signals"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// arxivAPIBase is the arXiv query endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const defaultArxivMaxResults = 100

// ArxivClient fetches recent submissions for a set of categories.
type ArxivClient struct {
	Client     *http.Client
	Categories []string
	MaxResults int

	// WindowDays drops entries published more than this many days before Now.
	// Zero disables the filter.
	WindowDays int
	Now        time.Time
}

// Name returns the source tag.
func (a *ArxivClient) Name() string { return types.SourceArxiv }

// Fetch queries the newest submissions and converts them to candidates.
// Entries outside the window, or without a parseable date when a window is
// set, are skipped.
func (a *ArxivClient) Fetch(ctx context.Context) ([]types.Candidate, error) {
	if len(a.Categories) == 0 {
		return nil, fmt.Errorf("arXiv: no categories configured")
	}
	maxResults := a.MaxResults
	if maxResults <= 0 {
		maxResults = defaultArxivMaxResults
	}

	params := url.Values{}
	params.Set("search_query", buildArxivQuery(a.Categories))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	body, err := httputil.GetBody(ctx, a.Client, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv feed: %w", err)
	}

	now := a.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out []types.Candidate
	for _, item := range feed.Items {
		c, ok := arxivCandidate(item)
		if !ok {
			continue
		}
		if a.WindowDays > 0 {
			days, dated := signals.DaysSince(c.PublishedAt, now)
			if !dated || days > a.WindowDays {
				continue
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// buildArxivQuery ORs the categories together ("cat:cs.LG OR cat:cs.CL").
func buildArxivQuery(categories []string) string {
	parts := make([]string, 0, len(categories))
	for _, cat := range categories {
		parts = append(parts, "cat:"+cat)
	}
	return strings.Join(parts, " OR ")
}

func arxivCandidate(item *gofeed.Item) (types.Candidate, bool) {
	rawID := extractArxivID(item.GUID)
	if rawID == "" {
		rawID = extractArxivID(item.Link)
	}
	if rawID == "" {
		return types.Candidate{}, false
	}

	c := types.Candidate{
		PaperID:    "arxiv:" + identity.CanonicalSourceID(rawID),
		Title:      collapseSpace(item.Title),
		Abstract:   collapseSpace(item.Description),
		Categories: item.Categories,
		SourceTags: []string{types.SourceArxiv},
		Links:      map[string]string{},
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			c.Authors = append(c.Authors, strings.TrimSpace(p.Name))
		}
	}

	switch {
	case item.PublishedParsed != nil:
		c.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		c.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		c.PublishedAt = item.Published
	}

	if item.Link != "" {
		c.Links["abs_url"] = item.Link
	}
	for _, l := range item.Links {
		if strings.Contains(l, "/pdf/") {
			c.Links["pdf_url"] = l
			break
		}
	}
	// Atom translation only keeps alternate links, so the related PDF link
	// is usually absent.
	if c.Links["pdf_url"] == "" && strings.Contains(c.Links["abs_url"], "/abs/") {
		c.Links["pdf_url"] = strings.Replace(c.Links["abs_url"], "/abs/", "/pdf/", 1)
	}
	return c, true
}

// extractArxivID pulls the versioned arXiv ID from an abs URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" yields "2301.07041v1").
func extractArxivID(idURL string) string {
	const marker = "/abs/"
	idx := strings.Index(idURL, marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(idURL[idx+len(marker):])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
