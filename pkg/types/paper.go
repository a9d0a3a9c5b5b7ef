// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-digest pipeline:
// the Candidate record that flows from the source adapters through selection,
// its typed signal namespaces, the trending hit table, and the run
// configuration.
package types

import (
	"maps"
	"slices"
	"strings"
)

// Role is the category under which a candidate was selected.
type Role string

const (
	RoleTrending    Role = "trending"
	RoleQuality     Role = "quality"
	RoleExploration Role = "exploration"
)

// Roles lists the roles in fill priority order.
var Roles = []Role{RoleTrending, RoleQuality, RoleExploration}

// Source tags written by the adapters.
const (
	SourceArxiv      = "arxiv"
	SourceOpenReview = "openreview"
	SourceHF         = "hf"
)

// Score keys, one per strategy.
const (
	ScoreTrending    = "trending"
	ScoreQuality     = "quality"
	ScoreExploration = "exploration"
	ScoreFallback    = "fallback"
)

// Candidate is a paper record flowing through the pipeline. Adapters populate
// the identity and descriptive fields; the pipeline fills Signals, Topics,
// Scores, Role, and SelectionReasons. PaperID never changes after creation.
type Candidate struct {
	// PaperID is a "source:id" composite (e.g. "arxiv:2401.01234").
	PaperID string `json:"paper_id" yaml:"paper_id"`

	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Abstract string   `json:"abstract" yaml:"abstract"`

	// PublishedAt is the publication timestamp as delivered by the source.
	// It may be empty or malformed; signals.ParseDate decides.
	PublishedAt string `json:"published_at" yaml:"published_at"`

	Categories []string          `json:"categories" yaml:"categories"`
	Links      map[string]string `json:"links" yaml:"links"`

	// SourceTags records every source that reported this paper, in first-seen order.
	SourceTags []string `json:"source_tags" yaml:"source_tags"`

	Signals          Signals            `json:"signals" yaml:"signals"`
	Keyphrases       []string           `json:"keyphrases,omitempty" yaml:"keyphrases,omitempty"`
	Topics           []string           `json:"topics" yaml:"topics"`
	Scores           map[string]float64 `json:"scores" yaml:"scores"`
	Role             Role               `json:"role,omitempty" yaml:"role,omitempty"`
	SelectionReasons []string           `json:"selection_reasons" yaml:"selection_reasons"`
}

// Source returns the source half of PaperID ("arxiv" for "arxiv:2401.01234").
func (c *Candidate) Source() string {
	src, _, ok := strings.Cut(c.PaperID, ":")
	if !ok {
		return ""
	}
	return src
}

// NativeID returns the id half of PaperID, or the whole PaperID when it has
// no source prefix.
func (c *Candidate) NativeID() string {
	_, id, ok := strings.Cut(c.PaperID, ":")
	if !ok {
		return c.PaperID
	}
	return id
}

// HasSource reports whether tag appears in SourceTags.
func (c *Candidate) HasSource(tag string) bool {
	return slices.Contains(c.SourceTags, tag)
}

// SetScore records a strategy score, allocating the map on first use.
func (c *Candidate) SetScore(key string, v float64) {
	if c.Scores == nil {
		c.Scores = make(map[string]float64)
	}
	c.Scores[key] = v
}

// AddReason appends a selection reason.
func (c *Candidate) AddReason(reason string) {
	c.SelectionReasons = append(c.SelectionReasons, reason)
}

// MergeSources folds provenance from incoming into c. Source tags are unioned
// in order, links are copied only where c has none (or an empty value), and
// signal namespaces are copied only where c has none. Nothing is overwritten.
func (c *Candidate) MergeSources(incoming *Candidate) {
	for _, tag := range incoming.SourceTags {
		if !c.HasSource(tag) {
			c.SourceTags = append(c.SourceTags, tag)
		}
	}
	for key, value := range incoming.Links {
		if value == "" || c.Links[key] != "" {
			continue
		}
		if c.Links == nil {
			c.Links = make(map[string]string)
		}
		c.Links[key] = value
	}
	c.Signals.fillFrom(incoming.Signals)
}

// Clone returns a deep copy so pipeline enrichment never touches the
// adapter's records.
func (c Candidate) Clone() *Candidate {
	out := c
	out.Authors = slices.Clone(c.Authors)
	out.Categories = slices.Clone(c.Categories)
	out.Links = maps.Clone(c.Links)
	out.SourceTags = slices.Clone(c.SourceTags)
	out.Signals = c.Signals.clone()
	out.Keyphrases = slices.Clone(c.Keyphrases)
	out.Topics = slices.Clone(c.Topics)
	out.Scores = maps.Clone(c.Scores)
	out.SelectionReasons = slices.Clone(c.SelectionReasons)
	return &out
}
