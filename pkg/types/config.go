// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

// HTTPConfig holds shared HTTP settings used by the source adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ScheduleConfig describes the digest cadence and the selection window.
type ScheduleConfig struct {
	Mode     string `json:"mode" yaml:"mode"`
	Timezone string `json:"timezone" yaml:"timezone"`

	// WindowDays bounds both the arXiv fetch and the recency signal.
	WindowDays int `json:"window_days" yaml:"window_days"`
}

// LimitsConfig caps fetch volume and optional enrichment.
type LimitsConfig struct {
	PapersPerCycle   int  `json:"papers_per_cycle" yaml:"papers_per_cycle"`
	ArxivMaxResults  int  `json:"arxiv_max_results" yaml:"arxiv_max_results"`
	PerTopicCap      int  `json:"per_topic_cap" yaml:"per_topic_cap"`
	EnableKeyphrases bool `json:"enable_keyphrases" yaml:"enable_keyphrases"`
}

// ArxivSourceConfig configures the preprint source.
type ArxivSourceConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Categories []string `json:"categories" yaml:"categories"`
}

// HFSourceConfig configures the trending-papers feed.
type HFSourceConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Month selects the feed month ("2026-10"); empty means the current month.
	Month string `json:"month,omitempty" yaml:"month,omitempty"`

	// PerQuery is the number of feed items considered (default 50).
	PerQuery int `json:"per_query" yaml:"per_query"`
}

// OpenReviewSourceConfig configures the peer-review venue source.
type OpenReviewSourceConfig struct {
	Enabled    bool     `json:"enabled" yaml:"enabled"`
	Venues     []string `json:"venues" yaml:"venues"`
	AcceptOnly bool     `json:"accept_only" yaml:"accept_only"`

	// DecisionRate limits per-forum decision lookups (requests per second).
	DecisionRate float64 `json:"decision_rate,omitempty" yaml:"decision_rate,omitempty"`
}

// SourcesConfig groups the three source configurations.
type SourcesConfig struct {
	Arxiv      ArxivSourceConfig      `json:"arxiv" yaml:"arxiv"`
	HF         HFSourceConfig         `json:"hf" yaml:"hf"`
	OpenReview OpenReviewSourceConfig `json:"openreview" yaml:"openreview"`
}

// TopicBucket is a named keyword group.
type TopicBucket struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// TopicBuckets is an ordered sequence of buckets. In YAML it is written as a
// mapping (topic name to keyword list); document order is preserved because
// it decides the order of a candidate's Topics.
type TopicBuckets []TopicBucket

// UnmarshalYAML decodes a mapping node in document order.
func (b *TopicBuckets) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: topic buckets must be a mapping", node.Line)
	}
	out := make(TopicBuckets, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var bucket TopicBucket
		if err := node.Content[i].Decode(&bucket.Name); err != nil {
			return fmt.Errorf("line %d: topic name: %w", node.Content[i].Line, err)
		}
		if err := node.Content[i+1].Decode(&bucket.Keywords); err != nil {
			return fmt.Errorf("line %d: keywords for %q: %w", node.Content[i+1].Line, bucket.Name, err)
		}
		out = append(out, bucket)
	}
	*b = out
	return nil
}

// MarshalYAML encodes the buckets as an ordered mapping.
func (b TopicBuckets) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, bucket := range b {
		var kw yaml.Node
		if err := kw.Encode(bucket.Keywords); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: bucket.Name}, &kw)
	}
	return node, nil
}

// MarshalJSON encodes the buckets as an ordered JSON object.
func (b TopicBuckets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, bucket := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(bucket.Name)
		if err != nil {
			return nil, err
		}
		kw, err := json.Marshal(bucket.Keywords)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(kw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object written by MarshalJSON, keeping key order.
func (b *TopicBuckets) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("topic buckets must be a JSON object")
	}
	out := TopicBuckets{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		bucket := TopicBucket{Name: tok.(string)}
		if err := dec.Decode(&bucket.Keywords); err != nil {
			return fmt.Errorf("keywords for %q: %w", bucket.Name, err)
		}
		out = append(out, bucket)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*b = out
	return nil
}

// TopicsConfig holds the keyword topic buckets.
type TopicsConfig struct {
	Method  string       `json:"method" yaml:"method"`
	Buckets TopicBuckets `json:"buckets" yaml:"buckets"`
}

// Weights is a strategy weight table. Missing keys fall back to the
// strategy's defaults.
type Weights map[string]float64

// Get returns the weight for key, or def when it is not configured.
func (w Weights) Get(key string, def float64) float64 {
	if v, ok := w[key]; ok {
		return v
	}
	return def
}

// TrendingStrategyConfig configures the trending strategy.
type TrendingStrategyConfig struct {
	Weights  Weights `json:"weights" yaml:"weights"`
	Fallback string  `json:"fallback" yaml:"fallback"`
}

// QualityStrategyConfig configures the quality strategy.
type QualityStrategyConfig struct {
	// VenueBonus maps a case-insensitive venue substring to a score bonus.
	VenueBonus map[string]float64 `json:"venue_bonus" yaml:"venue_bonus"`

	// TieBreak is declared for configuration compatibility; ranking always
	// uses a stable sort on score.
	TieBreak []string `json:"tie_break" yaml:"tie_break"`
}

// ExplorationStrategyConfig configures the exploration strategy.
type ExplorationStrategyConfig struct {
	Weights Weights `json:"weights" yaml:"weights"`
}

// SelectionConfig is everything the selection core reads.
type SelectionConfig struct {
	WindowDays     int                       `json:"-" yaml:"-"`
	Buckets        TopicBuckets              `json:"-" yaml:"-"`
	Trending       TrendingStrategyConfig    `json:"trending" yaml:"trending"`
	Quality        QualityStrategyConfig     `json:"quality" yaml:"quality"`
	Exploration    ExplorationStrategyConfig `json:"exploration" yaml:"exploration"`
	FuzzyThreshold float64                   `json:"fuzzy_threshold,omitempty" yaml:"fuzzy_threshold,omitempty"`
}

// EmailConfig configures SMTP delivery.
type EmailConfig struct {
	Enabled       bool     `json:"enabled" yaml:"enabled"`
	FromName      string   `json:"from_name" yaml:"from_name"`
	FromAddress   string   `json:"from_address" yaml:"from_address"`
	ToAddresses   []string `json:"to_addresses" yaml:"to_addresses"`
	SMTPHost      string   `json:"smtp_host" yaml:"smtp_host"`
	SMTPPort      int      `json:"smtp_port" yaml:"smtp_port"`
	UseTLS        bool     `json:"use_tls" yaml:"use_tls"`
	SubjectPrefix string   `json:"subject_prefix" yaml:"subject_prefix"`
}

// StorageConfig locates run artifacts and the run ledger.
type StorageConfig struct {
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// Ledger is the SQLite database path (default: <runs_dir>/ledger.db).
	Ledger string `json:"ledger,omitempty" yaml:"ledger,omitempty"`
}

// DigestConfig is the root configuration file.
type DigestConfig struct {
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule"`
	Limits    LimitsConfig    `json:"limits" yaml:"limits"`
	Sources   SourcesConfig   `json:"sources" yaml:"sources"`
	Topics    TopicsConfig    `json:"topics" yaml:"topics"`
	Selection SelectionConfig `json:"selection_strategy" yaml:"selection_strategy"`
	Email     EmailConfig     `json:"email" yaml:"email"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
}

// SelectionView returns the selection settings with the window and topic
// buckets filled in from their own sections.
func (c DigestConfig) SelectionView() SelectionConfig {
	sel := c.Selection
	sel.WindowDays = c.Schedule.WindowDays
	sel.Buckets = c.Topics.Buckets
	return sel
}
