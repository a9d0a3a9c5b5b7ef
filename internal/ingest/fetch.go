// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-digest/internal/selector"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// CandidateSource returns candidate records for the selector.
type CandidateSource interface {
	Name() string
	Fetch(ctx context.Context) ([]types.Candidate, error)
}

// HitSource returns the trending hit table.
type HitSource interface {
	Name() string
	FetchHits(ctx context.Context) (types.HitTable, error)
}

// Sources holds the enabled adapters. A nil field is a disabled source.
type Sources struct {
	Primary   CandidateSource
	Secondary CandidateSource
	Trending  HitSource
}

// Counts records how much each source returned.
type Counts struct {
	Arxiv      int `json:"arxiv_candidates" yaml:"arxiv_candidates"`
	OpenReview int `json:"openreview_candidates" yaml:"openreview_candidates"`
	HFHits     int `json:"hf_hits_count" yaml:"hf_hits_count"`
}

// NewSources builds the adapters enabled in cfg, sharing client.
func NewSources(cfg types.DigestConfig, client *http.Client, now time.Time, logger *slog.Logger) Sources {
	var src Sources
	if s := cfg.Sources.Arxiv; s.Enabled {
		src.Primary = &ArxivClient{
			Client:     client,
			Categories: s.Categories,
			MaxResults: cfg.Limits.ArxivMaxResults,
			WindowDays: cfg.Schedule.WindowDays,
			Now:        now,
		}
	}
	if s := cfg.Sources.OpenReview; s.Enabled {
		r := s.DecisionRate
		if r <= 0 {
			r = defaultOpenReviewRate
		}
		src.Secondary = &OpenReviewClient{
			Client:     client,
			Venues:     s.Venues,
			AcceptOnly: s.AcceptOnly,
			Limiter:    rate.NewLimiter(rate.Limit(r), 1),
			Logger:     logger,
		}
	}
	if s := cfg.Sources.HF; s.Enabled {
		src.Trending = &HFClient{
			Client:   client,
			Month:    s.Month,
			PerQuery: s.PerQuery,
			Now:      now,
		}
	}
	return src
}

// FetchAll runs the enabled sources concurrently. A failing source is logged
// and contributes nothing, the same as a disabled one, so FetchAll itself
// never fails.
func FetchAll(ctx context.Context, src Sources, logger *slog.Logger) (selector.Input, Counts) {
	if logger == nil {
		logger = slog.Default()
	}

	var in selector.Input
	var g errgroup.Group

	if src.Primary != nil {
		g.Go(func() error {
			in.Primary = fetchCandidates(ctx, src.Primary, logger)
			return nil
		})
	}
	if src.Secondary != nil {
		g.Go(func() error {
			in.Secondary = fetchCandidates(ctx, src.Secondary, logger)
			return nil
		})
	}
	if src.Trending != nil {
		g.Go(func() error {
			start := time.Now()
			hits, err := src.Trending.FetchHits(ctx)
			if err != nil {
				logger.Warn("source failed, continuing without it", "source", src.Trending.Name(), "error", err)
				return nil
			}
			logger.Info("fetched trending hits", "source", src.Trending.Name(), "hits", len(hits), "elapsed", time.Since(start))
			in.Hits = hits
			return nil
		})
	}
	// Workers never return an error so one failing source cannot cancel the others.
	_ = g.Wait()

	if in.Hits == nil {
		in.Hits = types.HitTable{}
	}
	return in, Counts{
		Arxiv:      len(in.Primary),
		OpenReview: len(in.Secondary),
		HFHits:     len(in.Hits),
	}
}

func fetchCandidates(ctx context.Context, src CandidateSource, logger *slog.Logger) []types.Candidate {
	start := time.Now()
	cands, err := src.Fetch(ctx)
	if err != nil {
		logger.Warn("source failed, continuing without it", "source", src.Name(), "error", err)
		return nil
	}
	logger.Info("fetched candidates", "source", src.Name(), "count", len(cands), "elapsed", time.Since(start))
	return cands
}
