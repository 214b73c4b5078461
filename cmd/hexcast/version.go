package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/hexcast"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of hexcast",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hexcast version %s\n", strings.TrimSpace(hexcast.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
