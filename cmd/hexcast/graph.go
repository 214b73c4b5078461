package main

import (
	"fmt"

	"github.com/aretw0/hexcast/internal/presentation/graph"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the session state machine as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the session phases. With --session,
the phases the stored session went through are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		var overlay *graph.GraphOverlay
		if sessionID != "" {
			rt, err := runtimeFor(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()
			state, err := rt.Engine.Manager().Load(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			overlay = graph.OverlayFor(state)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(domain.Transitions, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the phases of a stored session")
}
