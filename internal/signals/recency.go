// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package signals attaches derived signals to candidates: topic buckets,
// engineering-relevance flags, trending hits, and the recency score.
package signals

import (
	"strings"
	"time"
)

// dateLayouts lists the accepted publication timestamp formats, tried in order.
// Layouts without a zone are interpreted as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses a publication timestamp. It reports false for empty or
// unrecognized input.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DaysSince returns the number of whole days between published and now,
// floored at zero. It reports false when published cannot be parsed.
func DaysSince(published string, now time.Time) (int, bool) {
	t, ok := ParseDate(published)
	if !ok {
		return 0, false
	}
	days := int(now.UTC().Sub(t.UTC()) / (24 * time.Hour))
	return max(0, days), true
}

// Recency scores how recent published is within a window of windowDays:
// 1 for today, falling linearly to 0 at windowDays old and beyond. Missing or
// unparseable dates and non-positive windows score 0.
func Recency(published string, windowDays int, now time.Time) float64 {
	if windowDays <= 0 {
		return 0
	}
	days, ok := DaysSince(published, now)
	if !ok {
		return 0
	}
	return max(0, float64(windowDays-days)/float64(windowDays))
}
