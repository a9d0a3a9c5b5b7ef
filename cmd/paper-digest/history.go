package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs and the papers they selected",
	Long: `History reads the run ledger and lists the most recent runs, newest
first, with the papers each run selected and why.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum number of runs to show")
	historyCmd.Flags().Bool("json", false, "output runs as JSON")

	rootCmd.AddCommand(historyCmd)
}

// runHistoryEntry is a run with its selections, as printed by history.
type runHistoryEntry struct {
	storage.Run
	Papers []storage.PaperRecord `json:"papers"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ledger, err := storage.OpenLedger(config.LedgerPath(cfg))
	if err != nil {
		return err
	}
	defer ledger.Close()

	entries, err := loadHistory(cmd, ledger, limit)
	if err != nil {
		return err
	}
	return formatHistory(os.Stdout, entries, jsonOutput)
}

func loadHistory(cmd *cobra.Command, ledger *storage.Ledger, limit int) ([]runHistoryEntry, error) {
	ctx := cmd.Context()
	runs, err := ledger.RecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]runHistoryEntry, 0, len(runs))
	for _, r := range runs {
		papers, err := ledger.Selections(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, runHistoryEntry{Run: r, Papers: papers})
	}
	return entries, nil
}

func formatHistory(w io.Writer, entries []runHistoryEntry, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, e := range entries {
		status := green("emailed")
		switch {
		case e.DryRun:
			status = yellow("dry-run")
		case !e.Emailed:
			status = gray("not sent")
		}
		fmt.Fprintf(w, "%s  %s  %s\n", bold(e.StartedAt.Local().Format(time.DateTime)), gray(e.ID), status)
		fmt.Fprintf(w, "  candidates: arxiv=%d openreview=%d hf_hits=%d pool=%d\n",
			e.Counts.Arxiv, e.Counts.OpenReview, e.Counts.HFHits, e.PoolSize)
		for _, p := range e.Papers {
			fmt.Fprintf(w, "  [%s] %s\n", p.Role, p.Title)
			for _, reason := range p.Reasons {
				fmt.Fprintf(w, "      %s\n", gray(reason))
			}
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d runs\n", len(entries))
	return nil
}
