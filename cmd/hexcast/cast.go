package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/hexcast"
	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/internal/presentation/tui"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/session"
	"github.com/spf13/cobra"
)

var castCmd = &cobra.Command{
	Use:   "cast",
	Short: "Cast a hexagram",
	Long: `Casts a hexagram with random coins, or with coins you tossed yourself.

Manual tosses are three coins each, H (heads, 3) or T (tails, 2), bottom line first:

  hexcast cast --tosses TTH,THH,HTT,HHH,THT,HHT
  hexcast cast --manual --intention "What should I focus on?" --interpret`,
	RunE: runCast,
}

func init() {
	rootCmd.AddCommand(castCmd)
	castCmd.Flags().Bool("manual", false, "Prompt for each toss on stdin")
	castCmd.Flags().String("tosses", "", "Six manual tosses, e.g. TTH,THH,HTT,HHH,THT,HHT")
	castCmd.Flags().Uint64("seed", 0, "Seed the random coins for a reproducible cast")
	castCmd.Flags().StringP("intention", "i", "", "The question or intention of the cast")
	castCmd.Flags().StringP("lang", "l", "", "Locale of the reference text (default from config)")
	castCmd.Flags().Bool("interpret", false, "Request an interpretation (needs an intention)")
	castCmd.Flags().String("user", "", "Save the completed cast to this user's history")
	castCmd.Flags().String("session", "", "Session id (default: generated)")
	castCmd.Flags().Bool("json", false, "Print the session snapshot as JSON")
}

func runCast(cmd *cobra.Command, args []string) error {
	manual, _ := cmd.Flags().GetBool("manual")
	tossList, _ := cmd.Flags().GetString("tosses")
	intention, _ := cmd.Flags().GetString("intention")
	lang, _ := cmd.Flags().GetString("lang")
	interpret, _ := cmd.Flags().GetBool("interpret")
	user, _ := cmd.Flags().GetString("user")
	sessionID, _ := cmd.Flags().GetString("session")
	asJSON, _ := cmd.Flags().GetBool("json")

	var opts []hexcast.Option
	if cmd.Flags().Changed("seed") {
		seed, _ := cmd.Flags().GetUint64("seed")
		opts = append(opts, hexcast.WithSeed(seed))
	}
	rt, err := runtimeFor(cmd, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cli.NewSignalContext(cmd.Context())
	defer ctx.Cancel()

	mode := domain.ModeAutomatic
	var tosses []domain.Toss
	switch {
	case tossList != "":
		mode = domain.ModeManual
		if tosses, err = cli.ParseTossList(tossList); err != nil {
			return err
		}
	case manual:
		mode = domain.ModeManual
		// Prompt before taking the session lock.
		if tosses, err = cli.PromptTosses(ctx, cmd.InOrStdin(), cmd.ErrOrStderr(), domain.NumberOfTosses); err != nil {
			return err
		}
	}

	manager := rt.Engine.Manager()
	created, err := manager.Create(ctx, sessionID)
	if err != nil {
		return err
	}
	locale := rt.Engine.Content().Resolve(lang)

	state, flowErr := manager.Do(ctx, created.ID, func(ctx context.Context, s *session.Session) error {
		if err := s.Start(mode, intention); err != nil {
			return err
		}
		s.SetLocale(locale)
		if mode == domain.ModeManual {
			for _, t := range tosses {
				if _, err := s.AddToss(t); err != nil {
					return err
				}
			}
		} else if _, err := s.CastRandom(); err != nil {
			return err
		}
		if interpret || user != "" {
			_, err := s.Evaluate(ctx, domain.Caller{UserID: user})
			return err
		}
		return nil
	})
	if state == nil {
		return flowErr
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return err
		}
		return flowErr
	}

	if state.Reading == nil {
		if flowErr == nil {
			flowErr = fmt.Errorf("%w: %d of %d tosses", domain.ErrIncompleteCast, len(state.Tosses), domain.NumberOfTosses)
		}
		return flowErr
	}
	if err := printReading(out, rt, state, locale); err != nil {
		return err
	}
	if interpret && intention == "" {
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "No intention given; skipping the interpretation.")
	}
	if state.HistoryID != "" {
		cli.PrintSystemMessage(cmd.ErrOrStderr(), "Saved to history as %s.", state.HistoryID)
	}
	return flowErr
}

func printReading(w io.Writer, rt *cli.Runtime, state *domain.SessionState, locale string) error {
	text, err := rt.Engine.Text(state.Reading.Hexagram.Number, locale)
	if err != nil {
		return err
	}
	md := tui.FormatReading(*state.Reading, &text, state.Interpretation)
	rendered, err := rendererFor(w)(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

// rendererFor uses glamour only when w is a terminal.
func rendererFor(w io.Writer) tui.Renderer {
	if f, ok := w.(*os.File); ok {
		return tui.RendererFor(f)
	}
	return tui.Plain
}
