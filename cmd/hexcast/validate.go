package main

import (
	"fmt"

	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/internal/logging"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [content-dir]",
	Short: "Check the configuration and the content documents",
	Long: `Loads the configuration and every content document, and reports missing
hexagrams, lines or locales. Without a directory the embedded documents are checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("configuration: %w", err)
		}
		if len(args) > 0 {
			cfg.Content.Dir = args[0]
		}

		store, err := cli.LoadContent(cfg, logging.NewNop())
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		// Every hexagram must have text in every loaded locale.
		for _, locale := range store.Locales() {
			for _, h := range iching.Hexagrams() {
				if _, err := store.Text(h.Number, locale); err != nil {
					return fmt.Errorf("validation failed: %w", err)
				}
			}
		}

		source := "embedded"
		if cfg.Content.Dir != "" {
			source = cfg.Content.Dir
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Content is valid! ✅ (%s: %v)\n", source, store.Locales())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
