// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package selector merges multi-source candidates into one pool, scores them
// with the trending, quality, and exploration strategies, and fills each role
// with exactly one pick, falling back to recency ranking when a strategy has
// nothing to offer.
//
// Orchestrate is a pure function of its inputs, the configuration, the clock
// in Options, and the random source in Options. It clones every input record,
// so callers' slices are never modified.
package selector

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/internal/signals"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Input is the raw material for one selection pass.
type Input struct {
	// Primary holds preprint records; they merge only by canonical id.
	Primary []types.Candidate
	// Secondary holds peer-review records; they merge by fuzzy title.
	Secondary []types.Candidate
	// Hits is the trending hit table keyed by PaperID or normalized title.
	Hits types.HitTable
}

// Options carries the clock and random source. A zero Now means time.Now and
// a nil Rand means a generator seeded from Now; set both for reproducible runs.
type Options struct {
	Now  time.Time
	Rand *rand.Rand
}

// Result is the outcome of a selection pass.
type Result struct {
	// Selected holds at most one candidate per role, in role priority order.
	Selected []*types.Candidate
	// Debug is the top-ranked trace of each strategy.
	Debug ScoringDebug
	// Pool is the full merged pool, selected entries included.
	Pool []*types.Candidate
}

// Pick returns the candidate selected for role, or nil.
func (r Result) Pick(role types.Role) *types.Candidate {
	for _, c := range r.Selected {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// run holds the state of one Orchestrate pass.
type run struct {
	cfg       types.SelectionConfig
	now       time.Time
	threshold float64
	selected  []*types.Candidate
}

// Orchestrate merges the inputs, attaches topics and trending signals, and
// fills the trending, quality, and exploration roles in that order. Roles the
// strategies leave empty are backfilled by recency. A role is omitted only
// when no candidate remains that is neither selected nor a fuzzy duplicate of
// a selected title.
func Orchestrate(in Input, cfg types.SelectionConfig, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(uint64(now.UnixNano()), 0))
	}
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = identity.DefaultFuzzyThreshold
	}

	pool, primaryCount := merge(in.Primary, in.Secondary, threshold)
	for _, c := range pool {
		signals.AssignTopics(c, cfg.Buckets)
		signals.ApplyTrending(c, in.Hits)
	}

	r := &run{cfg: cfg, now: now, threshold: threshold}
	var debug ScoringDebug

	r.fillTrending(pool, in.Hits, &debug)
	r.fillQuality(pool, &debug)
	r.fillExploration(pool[:primaryCount], rng, &debug)
	r.backfill(pool)

	return Result{Selected: r.ordered(), Debug: debug, Pool: pool}
}

func (r *run) fillTrending(pool []*types.Candidate, hits types.HitTable, debug *ScoringDebug) {
	winner, trace := SelectTrending(pool, hits, r.cfg, r.now)
	debug.Trending = trace
	if winner != nil {
		winner.AddReason(reasonTrendingHits(winner.Signals.Trending))
	} else if winner = first(SelectFallback(pool, r.cfg, r.now)); winner != nil {
		winner.AddReason(reasonTrendingFallback)
	}
	if winner == nil {
		return
	}
	addContextReasons(winner, r.cfg.WindowDays, r.now)
	r.assign(winner, types.RoleTrending)
}

func (r *run) fillQuality(pool []*types.Candidate, debug *ScoringDebug) {
	reviewed := filter(pool, func(c *types.Candidate) bool { return c.Signals.Review != nil })
	winner, trace := SelectQuality(reviewed, r.cfg, r.now)
	debug.Quality = trace
	dropped := winner != nil && r.taken(winner)
	if dropped {
		winner = nil
	}

	if winner == nil {
		winner = first(SelectFallback(r.remaining(pool), r.cfg, r.now))
		if winner == nil {
			return
		}
		if dropped {
			winner.AddReason(reasonQualityTaken)
		} else {
			winner.AddReason(reasonQualityFallback)
		}
	}
	// Venue and rating reasons apply to any reviewed pick, fallback included.
	if review := winner.Signals.Review; review != nil {
		winner.AddReason(reasonVenue(review))
		if reason, ok := reasonRating(review); ok {
			winner.AddReason(reason)
		}
	}
	addContextReasons(winner, r.cfg.WindowDays, r.now)
	r.assign(winner, types.RoleQuality)
}

// fillExploration samples uniformly among primary entries that are not taken
// and carry no trending signal. The strategy score only feeds the trace.
func (r *run) fillExploration(primary []*types.Candidate, rng *rand.Rand, debug *ScoringDebug) {
	eligible := filter(primary, func(c *types.Candidate) bool {
		return c.Signals.Trending == nil && !r.taken(c)
	})
	_, trace := SelectExploration(eligible, r.cfg, r.selectedTopics(), r.now)
	debug.Exploration = trace
	if len(eligible) == 0 {
		return
	}

	pick := eligible[rng.IntN(len(eligible))]
	pick.AddReason(reasonNotTrending)
	pick.AddReason(reasonExploration)
	addContextReasons(pick, r.cfg.WindowDays, r.now)
	r.assign(pick, types.RoleExploration)
}

// backfill fills each missing role, in priority order, with the most recent
// candidate still available.
func (r *run) backfill(pool []*types.Candidate) {
	for _, role := range types.Roles {
		if r.has(role) {
			continue
		}
		remaining := r.remaining(pool)
		if len(remaining) == 0 {
			return
		}
		slices.SortStableFunc(remaining, func(a, b *types.Candidate) int {
			ra := signals.Recency(a.PublishedAt, r.cfg.WindowDays, r.now)
			rb := signals.Recency(b.PublishedAt, r.cfg.WindowDays, r.now)
			switch {
			case ra > rb:
				return -1
			case ra < rb:
				return 1
			}
			return 0
		})
		pick := remaining[0]
		pick.AddReason(reasonBackfill)
		if reason, ok := reasonRecency(pick, r.cfg.WindowDays, r.now); ok {
			pick.AddReason(reason)
		}
		r.assign(pick, role)
	}
}

func (r *run) assign(c *types.Candidate, role types.Role) {
	c.Role = role
	r.selected = append(r.selected, c)
}

func (r *run) has(role types.Role) bool {
	for _, c := range r.selected {
		if c.Role == role {
			return true
		}
	}
	return false
}

// taken reports whether c is already selected or its title fuzzy-matches a
// selected title.
func (r *run) taken(c *types.Candidate) bool {
	for _, s := range r.selected {
		if s == c || identity.FuzzyMatch(s.Title, c.Title, r.threshold) {
			return true
		}
	}
	return false
}

// remaining returns the pool entries that are not taken, in pool order.
func (r *run) remaining(pool []*types.Candidate) []*types.Candidate {
	return filter(pool, func(c *types.Candidate) bool { return !r.taken(c) })
}

func (r *run) selectedTopics() []string {
	var topics []string
	for _, c := range r.selected {
		topics = append(topics, c.Topics...)
	}
	return topics
}

// ordered returns the selections in role priority order.
func (r *run) ordered() []*types.Candidate {
	out := make([]*types.Candidate, 0, len(r.selected))
	for _, role := range types.Roles {
		for _, c := range r.selected {
			if c.Role == role {
				out = append(out, c)
			}
		}
	}
	return out
}
