// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keyphrase pulls short key phrases out of abstracts. Phrases are
// runs of content words broken at stopwords and punctuation, scored by the
// sum of each word's degree over its frequency.
package keyphrase

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	// DefaultTop is the number of phrases kept per abstract.
	DefaultTop = 8

	defaultMaxWords = 3
)

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`
		a about above after again against all also am an and any are as at be
		because been before being below between both but by can could did do
		does doing down during each few for from further had has have having he
		her here hers him his how however i if in into is it its itself just
		may me might more most must my no nor not now of off on once only or
		other our ours out over own per same she should so some such than that
		the their them then there these they this those through to too under
		until up upon us very via was we well were what when where whether which
		while who whom why will with within without would you your
		paper propose proposed show shows study present approach method methods
		results using use used new novel based`) {
		stopwords[w] = true
	}
}

// Extractor scores candidate phrases in a text.
type Extractor struct {
	// Top is the number of phrases returned.
	Top int
	// MaxWords caps phrase length; longer runs are split.
	MaxWords int
}

// New returns an Extractor keeping top phrases (DefaultTop when top <= 0).
func New(top int) *Extractor {
	if top <= 0 {
		top = DefaultTop
	}
	return &Extractor{Top: top, MaxWords: defaultMaxWords}
}

// Apply fills Keyphrases for every candidate with an abstract.
func (e *Extractor) Apply(cands []*types.Candidate) {
	for _, c := range cands {
		if strings.TrimSpace(c.Abstract) == "" {
			continue
		}
		c.Keyphrases = e.Extract(c.Abstract)
	}
}

// Extract returns up to Top phrases from text, best first. Ties keep the
// order of first appearance.
func (e *Extractor) Extract(text string) []string {
	phrases := e.phrases(text)
	if len(phrases) == 0 {
		return nil
	}

	freq := make(map[string]int)
	degree := make(map[string]int)
	for _, p := range phrases {
		for _, w := range p {
			freq[w]++
			degree[w] += len(p)
		}
	}

	type scored struct {
		text  string
		score float64
		first int
	}
	seen := make(map[string]int)
	var out []scored
	for i, p := range phrases {
		key := strings.Join(p, " ")
		if _, ok := seen[key]; ok {
			continue
		}
		var s float64
		for _, w := range p {
			s += float64(degree[w]) / float64(freq[w])
		}
		seen[key] = len(out)
		out = append(out, scored{text: key, score: s, first: i})
	}

	slices.SortStableFunc(out, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.first, b.first)
	})

	top := e.Top
	if top <= 0 {
		top = DefaultTop
	}
	result := make([]string, 0, min(top, len(out)))
	for _, s := range out[:min(top, len(out))] {
		result = append(result, s.text)
	}
	return result
}

// phrases splits text into runs of content words.
func (e *Extractor) phrases(text string) [][]string {
	maxWords := e.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	var out [][]string
	var cur []string
	flush := func() {
		for len(cur) > 0 {
			n := min(len(cur), maxWords)
			out = append(out, slices.Clone(cur[:n]))
			cur = cur[n:]
		}
		cur = cur[:0]
	}

	var word strings.Builder
	endWord := func() {
		if word.Len() == 0 {
			return
		}
		w := strings.Trim(word.String(), "-'")
		word.Reset()
		if !isContent(w) {
			flush()
			return
		}
		cur = append(cur, w)
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'':
			word.WriteRune(r)
		case unicode.IsSpace(r):
			endWord()
		default:
			endWord()
			flush()
		}
	}
	endWord()
	flush()
	return out
}

func isContent(w string) bool {
	if len(w) < 2 || stopwords[w] {
		return false
	}
	for _, r := range w {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
