package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config file and print the effective settings",
	Long: `Validate loads the config file, applies defaults and overrides, checks
every required field, and prints the result as YAML with mail addresses
masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		return writeValidated(os.Stdout, path, cfg)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func writeValidated(w io.Writer, path string, cfg types.DigestConfig) error {
	fmt.Fprintf(w, "# %s is valid\n", path)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(config.Masked(cfg)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}
