package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/hexcast"
	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts hexcast as an MCP Server, so AI agents can cast hexagrams and read
their text as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")

		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.Config.MCP.Addr = addr
		}

		var opts []mcp.Option
		opts = append(opts, mcp.WithLogger(rt.Logger))
		if i := rt.Engine.Interpreter(); i != nil {
			opts = append(opts, mcp.WithInterpreter(i))
		}
		srv := mcp.NewServer(rt.Engine.Content(), hexcast.Version, opts...)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			rt.Logger.Info("Starting hexcast MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx := cli.NewSignalContext(cmd.Context())
			defer ctx.Cancel()
			rt.Logger.Info("Starting hexcast MCP Server (SSE)", "address", rt.Config.MCP.Addr)
			if err := srv.ServeSSE(ctx, rt.Config.MCP.Addr, rt.Config.MCP.BaseURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			rt.Logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", "", "Address to listen on (only for SSE)")
}
