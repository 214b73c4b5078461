package main

import (
	"fmt"
	"os"

	"github.com/aretw0/hexcast"
	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hexcast",
	Short: "hexcast casts and reads I Ching hexagrams",
	Long: `hexcast turns coin tosses into hexagrams, shows their reference text,
and runs interactive casting sessions behind an HTTP API or an MCP server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("store", "", "Session store backend: memory, file or redis")
	rootCmd.PersistentFlags().String("content-dir", "", "Directory with <locale>.yaml content documents")
}

// loadConfig reads the configuration and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Backend = v
	}
	if v, _ := cmd.Flags().GetString("content-dir"); v != "" {
		cfg.Content.Dir = v
	}
	return cfg, cfg.Validate()
}

// runtimeFor builds the runtime for a command. Callers must Close it.
func runtimeFor(cmd *cobra.Command, opts ...hexcast.Option) (*cli.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	return cli.BuildRuntime(cfg, logger, opts...)
}
