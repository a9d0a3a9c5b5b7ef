// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"strings"
	"time"

	"github.com/pdiddy/paper-digest/internal/signals"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Default strategy weights, used when a key is missing from configuration.
const (
	defaultTrendingRankWeight    = 0.6
	defaultTrendingRecencyWeight = 0.4

	defaultExploreNoveltyWeight   = 0.4
	defaultExploreRecencyWeight   = 0.3
	defaultExploreCodeWeight      = 0.2
	defaultExploreDiversityWeight = 0.1
)

// SelectTrending scores candidates present in the hit table (by PaperID or
// normalized title) and returns the winner and the ranked trace. Candidates
// outside the table are not scored.
func SelectTrending(pool []*types.Candidate, hits types.HitTable, cfg types.SelectionConfig, now time.Time) (*types.Candidate, []DebugEntry) {
	w := cfg.Trending.Weights
	rankW := w.Get("hf_rank", defaultTrendingRankWeight)
	recencyW := w.Get("recency", defaultTrendingRecencyWeight)

	var eligible []*types.Candidate
	for _, c := range pool {
		hit, ok := signals.LookupTrending(c, hits)
		if !ok {
			continue
		}
		score := rankW*hit.BestRankProxy + recencyW*signals.Recency(c.PublishedAt, cfg.WindowDays, now)
		c.SetScore(types.ScoreTrending, score)
		eligible = append(eligible, c)
	}

	ranked := rankBy(eligible, types.ScoreTrending)
	return first(ranked), debugTop(ranked, types.ScoreTrending, func(c *types.Candidate) any {
		return c.Signals.Trending
	})
}

// SelectQuality scores candidates carrying a peer-review signal as
// mean rating + best matching venue bonus + recency.
func SelectQuality(pool []*types.Candidate, cfg types.SelectionConfig, now time.Time) (*types.Candidate, []DebugEntry) {
	var eligible []*types.Candidate
	for _, c := range pool {
		review := c.Signals.Review
		if review == nil {
			continue
		}
		var rating float64
		if review.MeanRating != nil {
			rating = *review.MeanRating
		}
		score := rating + venueBonus(review.Venue, cfg.Quality.VenueBonus) + signals.Recency(c.PublishedAt, cfg.WindowDays, now)
		c.SetScore(types.ScoreQuality, score)
		eligible = append(eligible, c)
	}

	ranked := rankBy(eligible, types.ScoreQuality)
	return first(ranked), debugTop(ranked, types.ScoreQuality, func(c *types.Candidate) any {
		return c.Signals.Review
	})
}

// venueBonus returns the largest configured bonus whose key is a
// case-insensitive substring of venue, or 0 when none match.
func venueBonus(venue string, bonuses map[string]float64) float64 {
	v := strings.ToLower(venue)
	best, matched := 0.0, false
	for name, bonus := range bonuses {
		if name == "" || !strings.Contains(v, strings.ToLower(name)) {
			continue
		}
		if !matched || bonus > best {
			best, matched = bonus, true
		}
	}
	return best
}

// SelectExploration applies engineering signals to every candidate and scores
// it for novelty, recency, code availability, and topic diversity relative to
// selectedTopics.
func SelectExploration(pool []*types.Candidate, cfg types.SelectionConfig, selectedTopics []string, now time.Time) (*types.Candidate, []DebugEntry) {
	w := cfg.Exploration.Weights
	noveltyW := w.Get("novelty_keywords", defaultExploreNoveltyWeight)
	recencyW := w.Get("recency", defaultExploreRecencyWeight)
	codeW := w.Get("has_code_link", defaultExploreCodeWeight)
	diversityW := w.Get("topic_diversity", defaultExploreDiversityWeight)

	seen := make(map[string]bool, len(selectedTopics))
	for _, t := range selectedTopics {
		seen[t] = true
	}

	for _, c := range pool {
		eng := signals.ApplyEngineering(c)
		score := noveltyW*signals.NoveltyHit(c) +
			recencyW*signals.Recency(c.PublishedAt, cfg.WindowDays, now) +
			codeW*boolScore(eng.HasCodeLink) +
			diversityW*diversityBonus(c.Topics, seen)
		c.SetScore(types.ScoreExploration, score)
	}

	ranked := rankBy(pool, types.ScoreExploration)
	return first(ranked), debugTop(ranked, types.ScoreExploration, func(c *types.Candidate) any {
		return c.Signals.Engineering
	})
}

// diversityBonus is 1 when topics is non-empty and shares nothing with seen.
func diversityBonus(topics []string, seen map[string]bool) float64 {
	if len(topics) == 0 {
		return 0
	}
	for _, t := range topics {
		if seen[t] {
			return 0
		}
	}
	return 1
}

// SelectFallback scores every candidate as recency + 1 if it matched any
// topic bucket, and returns the full ranking.
func SelectFallback(pool []*types.Candidate, cfg types.SelectionConfig, now time.Time) []*types.Candidate {
	for _, c := range pool {
		score := signals.Recency(c.PublishedAt, cfg.WindowDays, now) + signals.NoveltyHit(c)
		c.SetScore(types.ScoreFallback, score)
	}
	return rankBy(pool, types.ScoreFallback)
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
