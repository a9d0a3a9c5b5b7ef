// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "slices"

// Signals holds the per-namespace signal bags attached to a Candidate. Each
// namespace has exactly one owning writer; a nil pointer means the namespace
// was never populated.
type Signals struct {
	// Trending is written by signals.ApplyTrending from the hit table.
	Trending *TrendingSignal `json:"hf,omitempty" yaml:"hf,omitempty"`

	// Review is written by the OpenReview adapter.
	Review *ReviewSignal `json:"openreview,omitempty" yaml:"openreview,omitempty"`

	// Engineering is written by signals.ApplyEngineering.
	Engineering *EngineeringSignal `json:"engineering,omitempty" yaml:"engineering,omitempty"`
}

// TrendingSignal is the trending-feed metadata for a candidate.
type TrendingSignal struct {
	Matched   bool     `json:"matched" yaml:"matched"`
	QueryHits []string `json:"query_hits" yaml:"query_hits"`

	// BestRankProxy is the best normalized rank observed in the feed, in [0, 1].
	BestRankProxy float64 `json:"best_rank_proxy" yaml:"best_rank_proxy"`
}

// ReviewSignal is the peer-review metadata for a candidate. MeanRating and
// Confidence are nil when the venue did not publish them.
type ReviewSignal struct {
	Venue      string   `json:"venue" yaml:"venue"`
	Decision   string   `json:"decision" yaml:"decision"`
	MeanRating *float64 `json:"mean_rating,omitempty" yaml:"mean_rating,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// EngineeringSignal flags engineering relevance derived from links and text.
type EngineeringSignal struct {
	HasCodeLink       bool `json:"has_code_link" yaml:"has_code_link"`
	MentionsInference bool `json:"mentions_inference" yaml:"mentions_inference"`
	MentionsLatency   bool `json:"mentions_latency" yaml:"mentions_latency"`
	MentionsMemory    bool `json:"mentions_memory" yaml:"mentions_memory"`
	MentionsTraining  bool `json:"mentions_training" yaml:"mentions_training"`
}

// TrendingHit is one hit table entry.
type TrendingHit struct {
	Matched       bool     `json:"matched" yaml:"matched"`
	QueryHits     []string `json:"query_hits" yaml:"query_hits"`
	BestRankProxy float64  `json:"best_rank_proxy" yaml:"best_rank_proxy"`
}

// HitTable maps a lookup key (native "source:id" or normalized title) to a
// trending hit.
type HitTable map[string]TrendingHit

// fillFrom copies namespaces present in src and absent in s.
func (s *Signals) fillFrom(src Signals) {
	cp := src.clone()
	if s.Trending == nil {
		s.Trending = cp.Trending
	}
	if s.Review == nil {
		s.Review = cp.Review
	}
	if s.Engineering == nil {
		s.Engineering = cp.Engineering
	}
}

func (s Signals) clone() Signals {
	var out Signals
	if s.Trending != nil {
		t := *s.Trending
		t.QueryHits = slices.Clone(t.QueryHits)
		out.Trending = &t
	}
	if s.Review != nil {
		r := *s.Review
		if r.MeanRating != nil {
			v := *r.MeanRating
			r.MeanRating = &v
		}
		if r.Confidence != nil {
			v := *r.Confidence
			r.Confidence = &v
		}
		out.Review = &r
	}
	if s.Engineering != nil {
		e := *s.Engineering
		out.Engineering = &e
	}
	return out
}
