// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-digest CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/internal/logging"
	"github.com/pdiddy/paper-digest/internal/secrets"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	secretsDir = ".secrets/"
	dotenvFile = ".env"
)

// secretStore holds credentials loaded at startup.
var secretStore *secrets.Store

// logger is the process logger configured from the verbosity flags.
var logger = logging.Discard()

// rootCmd is the base command for the paper-digest CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-digest",
	Short: "Build a periodic digest of new machine learning papers",
	Long: `paper-digest collects recent preprints, peer-reviewed venue papers, and
trending-feed mentions, merges them into one candidate pool, and picks one
trending, one quality, and one exploration paper per cycle. Each run writes
JSON, HTML, and text artifacts, records the run in a local ledger, and can
mail the digest over SMTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetCount("verbose")
		quiet, _ := cmd.Flags().GetBool("quiet")
		format, _ := cmd.Flags().GetString("log-format")
		logger = logging.New(os.Stderr, logging.LevelFromVerbosity(verbose, quiet), logging.ParseFormat(format))
		slog.SetDefault(logger)

		s, err := secrets.Open(secretsDir, dotenvFile)
		if err != nil {
			return err
		}
		secretStore = s
		if keys := s.Keys(); len(keys) > 0 {
			logger.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-digest.yaml or ~/.config/paper-digest/paper-digest.yaml)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all log output")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Discover(viper.GetViper(), cfgFile)
}

// loadConfig reads and validates the discovered config file.
func loadConfig() (types.DigestConfig, string, error) {
	cfg, path, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, path, err
	}
	logger.Info("using config file", "path", path)
	return cfg, path, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
