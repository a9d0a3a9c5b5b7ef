// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"cmp"
	"slices"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// debugLimit is the number of ranked candidates kept per strategy in the trace.
const debugLimit = 10

// DebugEntry is one ranked candidate in a strategy's trace. Signal carries the
// signal namespace the strategy read (trending, review, or engineering).
type DebugEntry struct {
	PaperID string  `json:"paper_id" yaml:"paper_id"`
	Title   string  `json:"title" yaml:"title"`
	Score   float64 `json:"score" yaml:"score"`
	Signal  any     `json:"signal,omitempty" yaml:"signal,omitempty"`
}

// ScoringDebug holds the top ranked candidates for each strategy. It is meant
// for artifacts and logs, not for further computation.
type ScoringDebug struct {
	Trending    []DebugEntry `json:"trending" yaml:"trending"`
	Quality     []DebugEntry `json:"quality" yaml:"quality"`
	Exploration []DebugEntry `json:"exploration" yaml:"exploration"`
}

// rankBy returns a copy of cands sorted by Scores[key], highest first. The
// sort is stable: equal scores keep their pool order.
func rankBy(cands []*types.Candidate, key string) []*types.Candidate {
	ranked := slices.Clone(cands)
	slices.SortStableFunc(ranked, func(a, b *types.Candidate) int {
		return cmp.Compare(b.Scores[key], a.Scores[key])
	})
	return ranked
}

// debugTop builds trace entries for the first debugLimit ranked candidates.
func debugTop(ranked []*types.Candidate, key string, signal func(*types.Candidate) any) []DebugEntry {
	n := min(len(ranked), debugLimit)
	entries := make([]DebugEntry, 0, n)
	for _, c := range ranked[:n] {
		entries = append(entries, DebugEntry{
			PaperID: c.PaperID,
			Title:   c.Title,
			Score:   c.Scores[key],
			Signal:  signal(c),
		})
	}
	return entries
}

// first returns the head of ranked, or nil.
func first(ranked []*types.Candidate) *types.Candidate {
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

func filter(cands []*types.Candidate, keep func(*types.Candidate) bool) []*types.Candidate {
	var out []*types.Candidate
	for _, c := range cands {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
