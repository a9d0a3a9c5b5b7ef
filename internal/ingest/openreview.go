// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// openReviewAPIBase is the OpenReview REST endpoint. Declared as a var so
// tests can substitute an httptest server.
var openReviewAPIBase = "https://api.openreview.net"

// openReviewSiteBase prefixes forum and PDF links.
var openReviewSiteBase = "https://openreview.net"

const (
	openReviewNoteLimit     = 200
	openReviewForumLimit    = 50
	defaultOpenReviewRate   = 2.0
	openReviewAcceptKeyword = "accept"
)

// OpenReviewClient fetches submissions for a set of venues.
type OpenReviewClient struct {
	Client     *http.Client
	Venues     []string
	AcceptOnly bool

	// Limiter paces per-forum decision lookups. Nil means two per second.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// Name returns the source tag.
func (o *OpenReviewClient) Name() string { return types.SourceOpenReview }

type orNotes struct {
	Notes []orNote `json:"notes"`
}

type orNote struct {
	ID      string                     `json:"id"`
	Forum   string                     `json:"forum"`
	PDate   *int64                     `json:"pdate"`
	CDate   *int64                     `json:"cdate"`
	Content map[string]json.RawMessage `json:"content"`
}

type orDecision struct {
	Decision   string
	MeanRating *float64
	Confidence *float64
}

// Fetch lists each venue's notes and converts them to candidates. When
// AcceptOnly is set, each note's forum is searched for a decision and notes
// whose decision does not mention "accept" are skipped; notes with no
// decision at all are kept. A venue that fails is logged and skipped; Fetch
// only errors when every venue failed.
func (o *OpenReviewClient) Fetch(ctx context.Context) ([]types.Candidate, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := o.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(defaultOpenReviewRate), 1)
	}

	var (
		out  []types.Candidate
		errs []error
	)
	for _, venue := range o.Venues {
		notes, err := o.venueNotes(ctx, venue)
		if err != nil {
			logger.Warn("openreview venue fetch failed", "venue", venue, "error", err)
			errs = append(errs, fmt.Errorf("venue %q: %w", venue, err))
			continue
		}

		for _, note := range notes {
			var dec orDecision
			if o.AcceptOnly {
				if err := limiter.Wait(ctx); err != nil {
					return out, err
				}
				dec, err = o.forumDecision(ctx, note.forumID())
				if err != nil {
					logger.Warn("openreview decision fetch failed", "note", note.ID, "error", err)
				}
			}
			if dec.Decision == "" {
				dec.Decision = contentString(note.Content, "decision")
			}
			if o.AcceptOnly && dec.Decision != "" &&
				!strings.Contains(strings.ToLower(dec.Decision), openReviewAcceptKeyword) {
				continue
			}
			out = append(out, openReviewCandidate(note, venue, dec))
		}
	}

	if len(out) == 0 && len(errs) > 0 && len(errs) == len(o.Venues) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (o *OpenReviewClient) venueNotes(ctx context.Context, venue string) ([]orNote, error) {
	params := url.Values{}
	params.Set("content.venue", venue)
	params.Set("limit", strconv.Itoa(openReviewNoteLimit))
	return o.notes(ctx, params)
}

// forumDecision returns the first decision note in the forum, if any.
func (o *OpenReviewClient) forumDecision(ctx context.Context, forum string) (orDecision, error) {
	params := url.Values{}
	params.Set("forum", forum)
	params.Set("limit", strconv.Itoa(openReviewForumLimit))
	notes, err := o.notes(ctx, params)
	if err != nil {
		return orDecision{}, err
	}
	for _, n := range notes {
		if _, ok := n.Content["decision"]; !ok {
			continue
		}
		return orDecision{
			Decision:   contentString(n.Content, "decision"),
			MeanRating: contentFloat(n.Content, "mean_rating"),
			Confidence: contentFloat(n.Content, "confidence"),
		}, nil
	}
	return orDecision{}, nil
}

func (o *OpenReviewClient) notes(ctx context.Context, params url.Values) ([]orNote, error) {
	body, err := httputil.GetBody(ctx, o.Client, openReviewAPIBase+"/notes?"+params.Encode(),
		http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, err
	}
	var resp orNotes
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing notes: %w", err)
	}
	return resp.Notes, nil
}

func (n orNote) forumID() string {
	if n.Forum != "" {
		return n.Forum
	}
	return n.ID
}

func openReviewCandidate(note orNote, venue string, dec orDecision) types.Candidate {
	c := types.Candidate{
		PaperID:    "openreview:" + note.ID,
		Title:      stripMarkup(contentString(note.Content, "title")),
		Authors:    contentStrings(note.Content, "authors"),
		Abstract:   stripMarkup(contentString(note.Content, "abstract")),
		Categories: []string{venue},
		SourceTags: []string{types.SourceOpenReview},
		Links: map[string]string{
			"openreview_url": openReviewSiteBase + "/forum?id=" + note.ID,
		},
		Signals: types.Signals{Review: &types.ReviewSignal{
			Venue:      venue,
			Decision:   dec.Decision,
			MeanRating: dec.MeanRating,
			Confidence: dec.Confidence,
		}},
	}
	if pdf := contentString(note.Content, "pdf"); pdf != "" {
		if strings.HasPrefix(pdf, "/") {
			pdf = openReviewSiteBase + pdf
		}
		c.Links["pdf_url"] = pdf
	}

	switch {
	case note.PDate != nil:
		c.PublishedAt = epochMillis(*note.PDate)
	case note.CDate != nil:
		c.PublishedAt = epochMillis(*note.CDate)
	}
	return c
}

func epochMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// unwrap returns the inner value of API v2 {"value": ...} fields and the raw
// message otherwise.
func unwrap(raw json.RawMessage) json.RawMessage {
	var wrapped struct {
		Value json.RawMessage `json:"value"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Value != nil {
		return wrapped.Value
	}
	return raw
}

func contentString(content map[string]json.RawMessage, key string) string {
	raw, ok := content[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(unwrap(raw), &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func contentStrings(content map[string]json.RawMessage, key string) []string {
	raw, ok := content[key]
	if !ok {
		return nil
	}
	var ss []string
	if json.Unmarshal(unwrap(raw), &ss) != nil {
		return nil
	}
	return ss
}

// contentFloat accepts a JSON number or a numeric string ("6.5", or the
// "6: marginally above" form some venues use).
func contentFloat(content map[string]json.RawMessage, key string) *float64 {
	raw, ok := content[key]
	if !ok {
		return nil
	}
	inner := unwrap(raw)

	var f float64
	if json.Unmarshal(inner, &f) == nil {
		return &f
	}
	var s string
	if json.Unmarshal(inner, &s) != nil {
		return nil
	}
	s, _, _ = strings.Cut(s, ":")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// stripMarkup returns the text content of s when it contains HTML tags.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return collapseSpace(doc.Text())
}
