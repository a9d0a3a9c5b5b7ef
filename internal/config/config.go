// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config discovers, decodes, validates, and masks the digest
// configuration file.
//
// Discovery follows viper (explicit path, or paper-digest.yaml in the working
// directory or ~/.config/paper-digest/). Decoding uses yaml directly so the
// order of topic buckets survives; viper only contributes overrides from
// flags and PAPER_DIGEST_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/pkg/types"
)

const (
	// AppName names the config file and the per-user config directory.
	AppName = "paper-digest"

	// EnvPrefix prefixes environment overrides (PAPER_DIGEST_SCHEDULE_WINDOW_DAYS).
	EnvPrefix = "PAPER_DIGEST"
)

// Viper keys that may override the file.
const (
	KeyWindowDays   = "schedule.window_days"
	KeyRunsDir      = "storage.runs_dir"
	KeyEmailEnabled = "email.enabled"
)

// ErrNotFound is returned when no config file was found.
var ErrNotFound = errors.New("no config file found")

// ValidationError reports one invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Discover configures v to find the config file: explicit when non-empty,
// otherwise paper-digest.yaml in the working directory or the per-user
// config directory.
func Discover(v *viper.Viper, explicit string) {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the file v discovered, decodes it over Default, applies viper
// overrides, and validates the result. It returns the path that was used.
func Load(v *viper.Viper) (types.DigestConfig, string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return types.DigestConfig{}, "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return types.DigestConfig{}, "", fmt.Errorf("reading config: %w", err)
	}
	path := v.ConfigFileUsed()

	data, err := os.ReadFile(path)
	if err != nil {
		return types.DigestConfig{}, path, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return types.DigestConfig{}, path, fmt.Errorf("%s: %w", path, err)
	}
	ApplyOverrides(&cfg, v)

	if err := Validate(cfg); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

// Parse decodes YAML over Default. Unknown fields are errors.
func Parse(data []byte) (types.DigestConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return types.DigestConfig{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// ApplyOverrides copies the overridable keys from v when they are set by a
// flag, an environment variable, or the file itself.
func ApplyOverrides(cfg *types.DigestConfig, v *viper.Viper) {
	if v.IsSet(KeyWindowDays) {
		cfg.Schedule.WindowDays = v.GetInt(KeyWindowDays)
	}
	if v.IsSet(KeyRunsDir) {
		cfg.Storage.RunsDir = v.GetString(KeyRunsDir)
	}
	if v.IsSet(KeyEmailEnabled) {
		cfg.Email.Enabled = v.GetBool(KeyEmailEnabled)
	}
}

// Default returns the built-in configuration. A config file only needs to
// name what differs.
func Default() types.DigestConfig {
	return types.DigestConfig{
		Schedule: types.ScheduleConfig{Mode: "weekly", Timezone: "UTC", WindowDays: 7},
		Limits: types.LimitsConfig{
			PapersPerCycle:  3,
			ArxivMaxResults: 200,
			PerTopicCap:     1,
		},
		Sources: types.SourcesConfig{
			Arxiv: types.ArxivSourceConfig{Enabled: true, Categories: []string{"cs.LG", "cs.CL", "cs.AI"}},
			HF:    types.HFSourceConfig{Enabled: true, PerQuery: 50},
			OpenReview: types.OpenReviewSourceConfig{
				AcceptOnly:   true,
				DecisionRate: 2,
			},
		},
		Topics: types.TopicsConfig{
			Method: "keywords",
			Buckets: types.TopicBuckets{
				{Name: "llm", Keywords: []string{"language model", "llm", "instruction tuning"}},
				{Name: "efficiency", Keywords: []string{"quantization", "pruning", "distillation", "sparsity"}},
				{Name: "agents", Keywords: []string{"agent", "tool use", "planning"}},
				{Name: "vision", Keywords: []string{"image", "vision", "diffusion"}},
			},
		},
		Selection: types.SelectionConfig{
			Trending: types.TrendingStrategyConfig{
				Weights:  types.Weights{"hf_rank": 0.6, "recency": 0.4},
				Fallback: "recency_topic",
			},
			Quality: types.QualityStrategyConfig{
				VenueBonus: map[string]float64{},
				TieBreak:   []string{"mean_rating", "recency"},
			},
			Exploration: types.ExplorationStrategyConfig{
				Weights: types.Weights{"novelty_keywords": 0.4, "recency": 0.3, "has_code_link": 0.2, "topic_diversity": 0.1},
			},
			FuzzyThreshold: 90,
		},
		Email: types.EmailConfig{
			FromName:      "Paper Digest",
			SMTPPort:      587,
			UseTLS:        true,
			SubjectPrefix: "[Paper Digest]",
		},
		Storage: types.StorageConfig{RunsDir: "runs"},
		HTTP:    types.HTTPConfig{Timeout: 30 * time.Second, UserAgent: "paper-digest/1.0"},
	}
}

// Validate checks the fields the pipeline depends on and returns the first
// problem as a *ValidationError.
func Validate(cfg types.DigestConfig) error {
	if cfg.Schedule.WindowDays <= 0 {
		return invalid("schedule.window_days", "must be positive, got %d", cfg.Schedule.WindowDays)
	}
	if tz := cfg.Schedule.Timezone; tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return invalid("schedule.timezone", "unknown time zone %q", tz)
		}
	}

	if cfg.Limits.ArxivMaxResults < 0 {
		return invalid("limits.arxiv_max_results", "must not be negative")
	}
	if cfg.Limits.PapersPerCycle < 0 || cfg.Limits.PerTopicCap < 0 {
		return invalid("limits", "papers_per_cycle and per_topic_cap must not be negative")
	}

	src := cfg.Sources
	if src.Arxiv.Enabled && len(src.Arxiv.Categories) == 0 {
		return invalid("sources.arxiv.categories", "required when arxiv is enabled")
	}
	if src.HF.PerQuery < 0 {
		return invalid("sources.hf.per_query", "must not be negative")
	}
	if m := src.HF.Month; m != "" {
		if _, err := time.Parse("2006-01", m); err != nil {
			return invalid("sources.hf.month", "want YYYY-MM, got %q", m)
		}
	}
	if src.OpenReview.Enabled && len(src.OpenReview.Venues) == 0 {
		return invalid("sources.openreview.venues", "required when openreview is enabled")
	}
	if src.OpenReview.DecisionRate < 0 {
		return invalid("sources.openreview.decision_rate", "must not be negative")
	}

	if len(cfg.Topics.Buckets) == 0 {
		return invalid("topics.buckets", "must not be empty")
	}
	for _, b := range cfg.Topics.Buckets {
		if strings.TrimSpace(b.Name) == "" {
			return invalid("topics.buckets", "bucket with empty name")
		}
		if len(b.Keywords) == 0 {
			return invalid("topics.buckets."+b.Name, "needs at least one keyword")
		}
	}

	sel := cfg.Selection
	if t := sel.FuzzyThreshold; t < 0 || t > 100 {
		return invalid("selection_strategy.fuzzy_threshold", "must be within [0, 100], got %g", t)
	}
	for _, field := range sel.Quality.TieBreak {
		if strings.TrimSpace(field) == "" {
			return invalid("selection_strategy.quality.tie_break", "empty field name")
		}
	}

	if cfg.Email.Enabled {
		e := cfg.Email
		switch {
		case e.FromAddress == "":
			return invalid("email.from_address", "required when email is enabled")
		case len(e.ToAddresses) == 0:
			return invalid("email.to_addresses", "required when email is enabled")
		case e.SMTPHost == "":
			return invalid("email.smtp_host", "required when email is enabled")
		case e.SMTPPort <= 0 || e.SMTPPort > 65535:
			return invalid("email.smtp_port", "must be a TCP port, got %d", e.SMTPPort)
		}
	}

	if strings.TrimSpace(cfg.Storage.RunsDir) == "" {
		return invalid("storage.runs_dir", "required")
	}
	return nil
}

// Masked returns a copy safe to persist or print: mail addresses are
// replaced with "***".
func Masked(cfg types.DigestConfig) types.DigestConfig {
	out := cfg
	if out.Email.FromAddress != "" {
		out.Email.FromAddress = "***"
	}
	if len(cfg.Email.ToAddresses) > 0 {
		out.Email.ToAddresses = make([]string, len(cfg.Email.ToAddresses))
		for i := range out.Email.ToAddresses {
			out.Email.ToAddresses[i] = "***"
		}
	}
	return out
}

// LedgerPath returns the run ledger database path.
func LedgerPath(cfg types.DigestConfig) string {
	if cfg.Storage.Ledger != "" {
		return cfg.Storage.Ledger
	}
	return filepath.Join(cfg.Storage.RunsDir, "ledger.db")
}
