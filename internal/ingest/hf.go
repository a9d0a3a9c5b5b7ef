// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// hfAPIBase is the Hugging Face daily papers endpoint. Declared as a var so
// tests can substitute an httptest server.
var hfAPIBase = "https://huggingface.co/api/daily_papers"

const (
	defaultHFPerQuery = 50

	// hfQueryTag is recorded in QueryHits for every feed appearance.
	hfQueryTag = "daily_trending"
)

// HFClient builds the trending hit table from the Hugging Face daily papers
// feed.
type HFClient struct {
	Client *http.Client

	// Month selects the feed month ("2026-10"); empty means the month of Now.
	Month    string
	PerQuery int
	Now      time.Time
}

// Name returns the source tag.
func (h *HFClient) Name() string { return types.SourceHF }

// hfItem covers the field spellings seen across feed versions.
type hfItem struct {
	ArxivID      string `json:"arxiv_id"`
	ArxivIDCamel string `json:"arxivId"`
	PaperURL     string `json:"paper_url"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Paper        *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"paper"`
}

// FetchHits returns the hit table for the configured month. Items are ranked
// by feed position; BestRankProxy is (perQuery - rank + 1) / perQuery, the
// best over repeated appearances.
func (h *HFClient) FetchHits(ctx context.Context) (types.HitTable, error) {
	perQuery := h.PerQuery
	if perQuery <= 0 {
		perQuery = defaultHFPerQuery
	}
	month := h.Month
	if month == "" {
		now := h.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		month = now.Format("2006-01")
	}

	params := url.Values{}
	params.Set("month", month)
	params.Set("sort", "trending")

	body, err := httputil.GetBody(ctx, h.Client, hfAPIBase+"?"+params.Encode(),
		http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, fmt.Errorf("HF daily papers request: %w", err)
	}

	items, err := decodeHFItems(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HF daily papers: %w", err)
	}

	hits := types.HitTable{}
	for i, item := range items {
		if i >= perQuery {
			break
		}
		key := item.key()
		if key == "" {
			continue
		}
		rank := i + 1
		proxy := float64(perQuery-rank+1) / float64(perQuery)

		hit := hits[key]
		hit.Matched = true
		hit.QueryHits = append(hit.QueryHits, hfQueryTag)
		hit.BestRankProxy = max(hit.BestRankProxy, proxy)
		hits[key] = hit
	}
	return hits, nil
}

// decodeHFItems accepts either a bare array or an object wrapping the array
// under "items", "papers", or "hits".
func decodeHFItems(body []byte) ([]hfItem, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var items []hfItem
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped struct {
		Items  []hfItem `json:"items"`
		Papers []hfItem `json:"papers"`
		Hits   []hfItem `json:"hits"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case len(wrapped.Items) > 0:
		return wrapped.Items, nil
	case len(wrapped.Papers) > 0:
		return wrapped.Papers, nil
	}
	return wrapped.Hits, nil
}

// key returns the hit table key: "arxiv:<canonical id>" when an arXiv id can
// be found, else the normalized title.
func (it hfItem) key() string {
	id := it.ArxivID
	if id == "" {
		id = it.ArxivIDCamel
	}
	if id == "" && it.Paper != nil {
		id = it.Paper.ID
	}
	if id == "" {
		for _, u := range []string{it.PaperURL, it.URL} {
			if strings.Contains(u, "arxiv.org") {
				id = u[strings.LastIndex(u, "/")+1:]
				break
			}
		}
	}
	if id = strings.TrimSpace(id); id != "" {
		return "arxiv:" + identity.CanonicalSourceID(id)
	}

	title := it.Title
	if title == "" && it.Paper != nil {
		title = it.Paper.Title
	}
	return identity.NormalizeTitle(title)
}
