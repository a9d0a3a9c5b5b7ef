// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/pkg/types"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return testNow.Add(-time.Duration(n) * 24 * time.Hour).Format(time.RFC3339)
}

// --- dates and recency ---

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		ok    bool
	}{
		{"rfc3339", "2026-10-01T08:30:00Z", true},
		{"rfc3339 offset", "2026-10-01T08:30:00+02:00", true},
		{"fractional", "2026-10-01T08:30:00.123456Z", true},
		{"naive", "2026-10-01T08:30:00", true},
		{"space separated", "2026-10-01 08:30:00", true},
		{"date only", "2026-10-01", true},
		{"empty", "", false},
		{"garbage", "last tuesday", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDate(tt.value)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestParseDateNaiveIsUTC(t *testing.T) {
	got, ok := ParseDate("2026-10-01T08:30:00")
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
}

func TestDaysSince(t *testing.T) {
	d, ok := DaysSince(daysAgo(3), testNow)
	require.True(t, ok)
	assert.Equal(t, 3, d)

	d, ok = DaysSince(testNow.Add(48*time.Hour).Format(time.RFC3339), testNow)
	require.True(t, ok)
	assert.Equal(t, 0, d, "future dates floor at zero")

	_, ok = DaysSince("", testNow)
	assert.False(t, ok)
}

func TestRecency(t *testing.T) {
	assert.Equal(t, 1.0, Recency(daysAgo(0), 7, testNow))
	assert.InDelta(t, 4.0/7.0, Recency(daysAgo(3), 7, testNow), 1e-9)
	assert.Equal(t, 0.0, Recency(daysAgo(7), 7, testNow), "exactly window_days old")
	assert.Equal(t, 0.0, Recency(daysAgo(30), 7, testNow), "older than the window")
	assert.Equal(t, 0.0, Recency("", 7, testNow), "missing date")
	assert.Equal(t, 0.0, Recency("not a date", 7, testNow), "unparseable date")
	assert.Equal(t, 0.0, Recency(daysAgo(1), 0, testNow), "zero window")
}

func TestRecencyMonotonic(t *testing.T) {
	const window = 14
	for d := 0; d < window-1; d++ {
		newer := Recency(daysAgo(d), window, testNow)
		older := Recency(daysAgo(d+1), window, testNow)
		assert.Greater(t, newer, older, "day %d vs %d", d, d+1)
	}
}

// --- topics ---

var testBuckets = types.TopicBuckets{
	{Name: "llm", Keywords: []string{"language model", "LLM"}},
	{Name: "vision", Keywords: []string{"image", "vision"}},
	{Name: "efficiency", Keywords: []string{"quantization", "pruning"}},
}

func TestAssignTopics(t *testing.T) {
	c := &types.Candidate{
		Title:    "Pruning Large Language Models",
		Abstract: "We prune LLMs without retraining.",
	}
	got := AssignTopics(c, testBuckets)
	assert.Equal(t, []string{"llm", "efficiency"}, got)
	assert.Equal(t, got, c.Topics)
	assert.Equal(t, 1.0, NoveltyHit(c))
}

func TestAssignTopicsFollowsBucketOrder(t *testing.T) {
	c := &types.Candidate{Title: "Image quantization for vision language models"}
	reversed := types.TopicBuckets{testBuckets[2], testBuckets[1], testBuckets[0]}
	assert.Equal(t, []string{"llm", "vision", "efficiency"}, AssignTopics(c, testBuckets))
	assert.Equal(t, []string{"efficiency", "vision", "llm"}, AssignTopics(c, reversed))
}

func TestAssignTopicsNoMatch(t *testing.T) {
	c := &types.Candidate{Title: "A Study of Protein Folding"}
	assert.Empty(t, AssignTopics(c, testBuckets))
	assert.Equal(t, 0.0, NoveltyHit(c))
}

// --- engineering ---

func TestApplyEngineering(t *testing.T) {
	c := &types.Candidate{
		Title:    "Low-Latency Serving",
		Abstract: "Memory-efficient inference for transformers.",
		Links:    map[string]string{"code": "https://github.com/org/repo"},
	}
	sig := ApplyEngineering(c)
	require.NotNil(t, c.Signals.Engineering)
	assert.True(t, sig.HasCodeLink)
	assert.True(t, sig.MentionsInference)
	assert.True(t, sig.MentionsLatency)
	assert.True(t, sig.MentionsMemory)
	assert.False(t, sig.MentionsTraining)
}

func TestApplyEngineeringCodeLinkInText(t *testing.T) {
	c := &types.Candidate{Title: "X", Abstract: "Code at github.com/org/x."}
	assert.True(t, ApplyEngineering(c).HasCodeLink)

	c = &types.Candidate{Title: "Y", Links: map[string]string{"abs_url": "https://arxiv.org/abs/1"}}
	assert.False(t, ApplyEngineering(c).HasCodeLink)
}

func TestApplyEngineeringIdempotent(t *testing.T) {
	c := &types.Candidate{Title: "Training with optimization tricks"}
	first := *ApplyEngineering(c)
	second := *ApplyEngineering(c)
	assert.Equal(t, first, second)
}

// --- trending ---

func TestApplyTrendingByID(t *testing.T) {
	hits := types.HitTable{
		"arxiv:2401.00001": {Matched: true, QueryHits: []string{"daily_trending"}, BestRankProxy: 0.8},
	}
	c := &types.Candidate{PaperID: "arxiv:2401.00001", Title: "Anything"}
	require.True(t, ApplyTrending(c, hits))
	require.NotNil(t, c.Signals.Trending)
	assert.Equal(t, 0.8, c.Signals.Trending.BestRankProxy)
	assert.Equal(t, []string{"daily_trending"}, c.Signals.Trending.QueryHits)
}

func TestApplyTrendingByNormalizedTitle(t *testing.T) {
	hits := types.HitTable{
		"attention is all you need": {Matched: true, BestRankProxy: 0.5},
	}
	c := &types.Candidate{PaperID: "openreview:xyz", Title: "Attention Is All You Need!"}
	assert.True(t, ApplyTrending(c, hits))
	assert.NotNil(t, c.Signals.Trending)
}

func TestApplyTrendingAbsent(t *testing.T) {
	hits := types.HitTable{"arxiv:1": {Matched: true}}
	c := &types.Candidate{PaperID: "arxiv:2", Title: "Unrelated"}
	assert.False(t, ApplyTrending(c, hits))
	assert.Nil(t, c.Signals.Trending)

	empty := &types.Candidate{PaperID: "arxiv:3"}
	assert.False(t, ApplyTrending(empty, types.HitTable{"": {Matched: true}}))
	assert.Nil(t, empty.Signals.Trending)
}

func TestApplyTrendingOverwrites(t *testing.T) {
	c := &types.Candidate{
		PaperID: "arxiv:1",
		Signals: types.Signals{Trending: &types.TrendingSignal{BestRankProxy: 0.1}},
	}
	ApplyTrending(c, types.HitTable{"arxiv:1": {Matched: true, BestRankProxy: 0.9}})
	assert.Equal(t, 0.9, c.Signals.Trending.BestRankProxy)
	assert.True(t, c.Signals.Trending.Matched)
}
