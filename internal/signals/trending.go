// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signals

import (
	"slices"

	"github.com/pdiddy/paper-digest/internal/identity"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// LookupTrending finds c in the hit table by PaperID, then by normalized title.
func LookupTrending(c *types.Candidate, hits types.HitTable) (types.TrendingHit, bool) {
	if hit, ok := hits[c.PaperID]; ok {
		return hit, true
	}
	if key := identity.NormalizeTitle(c.Title); key != "" {
		if hit, ok := hits[key]; ok {
			return hit, true
		}
	}
	return types.TrendingHit{}, false
}

// ApplyTrending merges the candidate's hit table entry into its trending
// namespace, overwriting existing fields. Candidates absent from the table
// are left untouched.
func ApplyTrending(c *types.Candidate, hits types.HitTable) bool {
	hit, ok := LookupTrending(c, hits)
	if !ok {
		return false
	}
	if c.Signals.Trending == nil {
		c.Signals.Trending = &types.TrendingSignal{}
	}
	c.Signals.Trending.Matched = hit.Matched
	c.Signals.Trending.QueryHits = slices.Clone(hit.QueryHits)
	c.Signals.Trending.BestRankProxy = hit.BestRankProxy
	return true
}
