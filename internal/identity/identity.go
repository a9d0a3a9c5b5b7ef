// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity normalizes titles and source identifiers and decides
// whether two records denote the same paper.
//
// None of these functions fail. Empty or malformed input normalizes to an
// empty key that matches nothing, which is the safe outcome: a missed merge
// is preferable to a false one.
package identity

import (
	"regexp"
	"slices"
	"strings"
)

// DefaultFuzzyThreshold is the token-set ratio (0-100) at or above which two
// titles are treated as the same paper.
const DefaultFuzzyThreshold = 90.0

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonKeyRe     = regexp.MustCompile(`[^a-z0-9 ]`)
	versionRe    = regexp.MustCompile(`v\d+$`)
)

// NormalizeTitle lower-cases the title, collapses whitespace runs, and drops
// every character outside [a-z0-9 ]. The result is used as a fallback merge
// key and as a hit table lookup key.
func NormalizeTitle(title string) string {
	s := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	return nonKeyRe.ReplaceAllString(s, "")
}

// CanonicalSourceID strips a trailing version suffix ("2401.01234v3" becomes
// "2401.01234") so that revisions collapse to one identity.
func CanonicalSourceID(raw string) string {
	return versionRe.ReplaceAllString(raw, "")
}

// CanonicalKey returns "source:canonical-id" for a "source:id" paper ID.
func CanonicalKey(paperID string) string {
	src, id, ok := strings.Cut(paperID, ":")
	if !ok {
		return CanonicalSourceID(paperID)
	}
	return src + ":" + CanonicalSourceID(id)
}

// FuzzyMatch reports whether the token-set ratio of the normalized titles
// meets threshold.
func FuzzyMatch(a, b string, threshold float64) bool {
	return TokenSetRatio(NormalizeTitle(a), NormalizeTitle(b)) >= threshold
}

// TokenSetRatio scores the order-insensitive token overlap of a and b on a
// 0-100 scale. Tokens are compared as sets: when one set contains the other
// the score is 100; otherwise the sorted intersection is compared against
// intersection+remainder on each side and the best indel ratio wins. Either
// side having no tokens scores 0.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for _, t := range ta {
		if _, ok := slices.BinarySearch(tb, t); ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for _, t := range tb {
		if _, ok := slices.BinarySearch(ta, t); !ok {
			diffBA = append(diffBA, t)
		}
	}

	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	base := strings.Join(sect, " ")
	combinedAB := strings.TrimSpace(base + " " + strings.Join(diffAB, " "))
	combinedBA := strings.TrimSpace(base + " " + strings.Join(diffBA, " "))

	best := ratio(combinedAB, combinedBA)
	if base != "" {
		best = max(best, ratio(base, combinedAB), ratio(base, combinedBA))
	}
	return best
}

// tokenSet returns the sorted, deduplicated whitespace tokens of s.
func tokenSet(s string) []string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

// ratio is the normalized indel similarity 100 * 2*LCS / (len(a)+len(b)).
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLength(ra, rb)) / float64(total)
}

// lcsLength returns the length of the longest common subsequence.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
