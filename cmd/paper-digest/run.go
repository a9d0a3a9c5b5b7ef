// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/internal/delivery"
	"github.com/pdiddy/paper-digest/internal/httputil"
	"github.com/pdiddy/paper-digest/internal/ingest"
	"github.com/pdiddy/paper-digest/internal/keyphrase"
	"github.com/pdiddy/paper-digest/internal/report"
	"github.com/pdiddy/paper-digest/internal/selector"
	"github.com/pdiddy/paper-digest/internal/storage"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch candidates, select papers, and write the digest",
	Long: `Run fetches the enabled sources concurrently, merges the candidates,
selects one trending, one quality, and one exploration paper, renders the
digest, writes the run artifacts, and records the run in the ledger. When
email is enabled the digest is mailed unless --dry-run is given.

A source that fails is logged and skipped; the run continues with the rest.`,
	RunE: runDigest,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "skip email delivery")
	runCmd.Flags().Bool("print", false, "print the selected papers to stdout")
	runCmd.Flags().Int64("seed", 0, "seed for exploration sampling (default: time-based)")
	runCmd.Flags().Int("window-days", 0, "override schedule.window_days")
	runCmd.Flags().String("runs-dir", "", "override storage.runs_dir")

	viper.BindPFlag(config.KeyWindowDays, runCmd.Flags().Lookup("window-days"))
	viper.BindPFlag(config.KeyRunsDir, runCmd.Flags().Lookup("runs-dir"))

	rootCmd.AddCommand(runCmd)
}

// runOptions are the per-invocation switches of a run.
type runOptions struct {
	Now    time.Time
	Seed   uint64
	DryRun bool
	Print  bool
}

// runOutcome summarizes a finished run.
type runOutcome struct {
	RunID     string
	Artifacts storage.Artifacts
	Result    selector.Result
	Emailed   bool
}

func runDigest(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	opts := runOptions{Now: now, Seed: uint64(now.UnixNano())}
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetInt64("seed")
		opts.Seed = uint64(seed)
	}
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	opts.Print, _ = cmd.Flags().GetBool("print")

	src := ingest.NewSources(cfg, httputil.NewClient(cfg.HTTP), now, logger)
	out, err := runPipeline(cmd.Context(), cfg, src, opts, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("run complete", "run_id", out.RunID, "selected", len(out.Result.Selected), "artifact", out.Artifacts.JSON, "emailed", out.Emailed)
	return nil
}

// runPipeline executes one digest cycle against src.
func runPipeline(ctx context.Context, cfg types.DigestConfig, src ingest.Sources, opts runOptions, w io.Writer) (runOutcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	in, counts := ingest.FetchAll(ctx, src, logger)
	if err := ctx.Err(); err != nil {
		return runOutcome{}, err
	}

	logger.Debug("selecting", "seed", opts.Seed, "arxiv", counts.Arxiv, "openreview", counts.OpenReview, "hf_hits", counts.HFHits)
	res := selector.Orchestrate(in, cfg.SelectionView(), selector.Options{
		Now:  now,
		Rand: rand.New(rand.NewPCG(opts.Seed, opts.Seed)),
	})
	if len(res.Selected) == 0 {
		logger.Warn("no candidates selected", "pool", len(res.Pool))
	}

	if cfg.Limits.EnableKeyphrases {
		keyphrase.New(keyphrase.DefaultTop).Apply(res.Selected)
	}

	header := report.NewHeader(cfg.Email.SubjectPrefix, now, cfg.Schedule.WindowDays, len(res.Selected))
	html, text, err := report.Render(res.Selected, header)
	if err != nil {
		return runOutcome{}, err
	}

	paths, err := storage.WriteArtifacts(cfg.Storage.RunsDir, now, res.Selected, html, text, storage.Payload{
		ConfigSnapshot: config.Masked(cfg),
		WindowStart:    header.WindowStart,
		WindowEnd:      header.WindowEnd,
		Counts:         counts,
		ScoringDebug:   res.Debug,
	})
	if err != nil {
		return runOutcome{}, err
	}
	logger.Info("artifacts written", "json", paths.JSON, "html", paths.HTML, "text", paths.Text)

	out := runOutcome{Artifacts: paths, Result: res}

	ledger, err := storage.OpenLedger(config.LedgerPath(cfg))
	if err != nil {
		logger.Warn("ledger unavailable, run not recorded", "error", err)
	} else {
		defer ledger.Close()
		out.RunID, err = ledger.RecordRun(ctx, storage.Run{
			StartedAt:   now,
			WindowStart: header.WindowStart,
			WindowEnd:   header.WindowEnd,
			Counts:      counts,
			Artifact:    paths.JSON,
			DryRun:      opts.DryRun,
		}, res.Selected, res.Pool)
		if err != nil {
			logger.Warn("recording run failed", "error", err)
		}
	}

	if opts.Print {
		printSummary(w, res.Selected)
	}

	if !cfg.Email.Enabled || opts.DryRun {
		return out, nil
	}
	if err := sendDigest(ctx, cfg.Email, header.Subject, text, html); err != nil {
		return out, err
	}
	out.Emailed = true
	if ledger != nil && out.RunID != "" {
		if err := ledger.MarkEmailed(ctx, out.RunID); err != nil {
			logger.Warn("marking run emailed failed", "error", err)
		}
	}
	return out, nil
}

func sendDigest(ctx context.Context, cfg types.EmailConfig, subject, text, html string) error {
	var password string
	if secretStore != nil {
		password, _ = secretStore.SMTPPassword()
	}
	sender, err := delivery.NewSender(cfg, password, logger)
	if err != nil {
		return err
	}
	return sender.Send(ctx, delivery.MessageFor(cfg, subject, text, html))
}

// printSummary writes one "[role] title" line per selected paper.
func printSummary(w io.Writer, selected []*types.Candidate) {
	roleColor := map[types.Role]func(a ...any) string{
		types.RoleTrending:    color.New(color.FgMagenta, color.Bold).SprintFunc(),
		types.RoleQuality:     color.New(color.FgGreen, color.Bold).SprintFunc(),
		types.RoleExploration: color.New(color.FgCyan, color.Bold).SprintFunc(),
	}
	gray := color.New(color.FgHiBlack).SprintFunc()

	if len(selected) == 0 {
		fmt.Fprintln(w, gray("no papers selected"))
		return
	}
	for _, c := range selected {
		paint, ok := roleColor[c.Role]
		if !ok {
			paint = fmt.Sprint
		}
		fmt.Fprintf(w, "%s %s\n", paint("["+string(c.Role)+"]"), c.Title)
		if link := c.Links["abs_url"]; link != "" {
			fmt.Fprintf(w, "    %s\n", gray(link))
		} else if link := c.Links["openreview_url"]; link != "" {
			fmt.Fprintf(w, "    %s\n", gray(link))
		}
	}
}
