// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/signals"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Fixed reason strings.
const (
	reasonTrendingFallback = "no trending hit, used recency + topic fallback"
	reasonQualityFallback  = "peer-review signal unavailable, used recency fallback"
	reasonQualityTaken     = "top peer-reviewed pick already selected, used recency fallback"
	reasonNotTrending      = "not on the trending list"
	reasonExploration      = "chosen by exploration sampling"
	reasonBackfill         = "insufficient candidates, used recency fallback"
)

func reasonTrendingHits(sig *types.TrendingSignal) string {
	var queries []string
	if sig != nil {
		for _, q := range sig.QueryHits {
			if !slices.Contains(queries, q) {
				queries = append(queries, q)
			}
		}
	}
	if len(queries) == 0 {
		return "on the trending feed"
	}
	return "trending feed hits: " + strings.Join(queries, ", ")
}

func reasonVenue(sig *types.ReviewSignal) string {
	return strings.TrimSpace("OpenReview: " + strings.TrimSpace(sig.Venue+" "+sig.Decision))
}

func reasonRating(sig *types.ReviewSignal) (string, bool) {
	if sig == nil || sig.MeanRating == nil {
		return "", false
	}
	return "mean rating: " + strconv.FormatFloat(*sig.MeanRating, 'f', 2, 64), true
}

// reasonRecency reports how recent the paper is within the window. It is
// skipped for candidates without a publication date.
func reasonRecency(c *types.Candidate, windowDays int, now time.Time) (string, bool) {
	if c.PublishedAt == "" {
		return "", false
	}
	r := signals.Recency(c.PublishedAt, windowDays, now)
	return fmt.Sprintf("published within %d days", int(math.Round(float64(windowDays)*(1-r)))), true
}

func reasonTopics(c *types.Candidate) (string, bool) {
	if len(c.Topics) == 0 {
		return "", false
	}
	return "topics: " + strings.Join(c.Topics, "/"), true
}

// addContextReasons appends the recency and topic rationale shared by every role.
func addContextReasons(c *types.Candidate, windowDays int, now time.Time) {
	if r, ok := reasonRecency(c, windowDays, now); ok {
		c.AddReason(r)
	}
	if r, ok := reasonTopics(c); ok {
		c.AddReason(r)
	}
}
