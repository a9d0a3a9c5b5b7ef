// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selector

import (
	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// Merge builds the unified candidate pool from primary (preprint) and
// secondary (peer-review) records. See merge for the rules.
func Merge(primary, secondary []types.Candidate, threshold float64) []*types.Candidate {
	pool, _ := merge(primary, secondary, threshold)
	return pool
}

// merge clones every record before it enters the pool, so the inputs are
// never mutated. Primary records are keyed by "source:canonical-id" and only
// merge with each other by that key. Each secondary record merges into the
// first pool entry whose title fuzzy-matches it (pool order, no best-match
// search); unmatched secondaries enter the pool keyed by normalized title.
// The pool keeps insertion order, and the first primaryCount entries are the
// ones seeded from primary records.
func merge(primary, secondary []types.Candidate, threshold float64) (pool []*types.Candidate, primaryCount int) {
	byKey := make(map[string]*types.Candidate, len(primary)+len(secondary))

	for i := range primary {
		rec := &primary[i]
		key := identity.CanonicalKey(rec.PaperID)
		if existing, ok := byKey[key]; ok {
			existing.MergeSources(rec)
			continue
		}
		c := rec.Clone()
		byKey[key] = c
		pool = append(pool, c)
	}
	primaryCount = len(pool)

	for i := range secondary {
		rec := &secondary[i]
		if existing := firstFuzzyMatch(pool, rec.Title, threshold); existing != nil {
			existing.MergeSources(rec)
			continue
		}
		key := identity.NormalizeTitle(rec.Title)
		if key == "" {
			key = identity.CanonicalKey(rec.PaperID)
		}
		if existing, ok := byKey[key]; ok {
			existing.MergeSources(rec)
			continue
		}
		c := rec.Clone()
		byKey[key] = c
		pool = append(pool, c)
	}
	return pool, primaryCount
}

// firstFuzzyMatch returns the first candidate whose title fuzzy-matches title.
func firstFuzzyMatch(cands []*types.Candidate, title string, threshold float64) *types.Candidate {
	for _, c := range cands {
		if identity.FuzzyMatch(c.Title, title, threshold) {
			return c
		}
	}
	return nil
}
