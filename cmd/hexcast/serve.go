package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/hexcast"
	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/internal/presentation/tui"
	httpAdapter "github.com/aretw0/hexcast/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the JSON API over HTTP: hexagram text, one-shot casts, casting
sessions with live events, history and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFor(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.Config.HTTP.Addr = addr
		}

		opts := []httpAdapter.Option{
			httpAdapter.WithContent(rt.Engine.Content()),
			httpAdapter.WithHistory(rt.Engine.History()),
			httpAdapter.WithVersion(strings.TrimSpace(hexcast.Version)),
			httpAdapter.WithLogger(rt.Logger),
		}
		if rt.Metrics != nil {
			opts = append(opts, httpAdapter.WithMetricsHandler(rt.Metrics.Handler()))
		}

		srv := &http.Server{
			Addr:              rt.Config.HTTP.Addr,
			Handler:           httpAdapter.NewHandler(rt.Engine.Manager(), opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if tui.IsTerminal(os.Stderr) {
			tui.PrintBanner(os.Stderr)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			rt.Logger.Info("Starting hexcast server", "address", srv.Addr, "store", rt.Config.Store.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		select {
		case err := <-serverErrors:
			return err
		case <-ctx.Done():
			rt.Logger.Info("Start shutdown", "signal", ctx.Signal())

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.Logger.Warn("Graceful shutdown did not complete", "error", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
			rt.Logger.Info("hexcast server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default from config, :8080)")
}
