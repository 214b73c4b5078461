package main

import (
	"fmt"
	"strconv"

	"github.com/aretw0/hexcast/internal/cli"
	"github.com/aretw0/hexcast/internal/presentation/tui"
	"github.com/aretw0/hexcast/pkg/domain"
	"github.com/aretw0/hexcast/pkg/iching"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <number>",
	Short: "Show the reference text of a hexagram",
	Long:  `Prints the judgment, the image and the lines of a hexagram in King Wen order (1-64).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return domain.NewInvalidInput("number", args[0], "must be an integer between 1 and 64")
		}
		lang, _ := cmd.Flags().GetString("lang")
		line, _ := cmd.Flags().GetInt("line")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg)
		if err != nil {
			return err
		}
		store, err := cli.LoadContent(cfg, logger)
		if err != nil {
			return err
		}

		h, err := iching.HexagramByNumber(n)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if line != 0 {
			lt, err := store.LineText(n, line, lang)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d. %s, line %d\n\n%s\n", h.Number, h.Title, line, lt.Text)
			if lt.Comments != "" {
				fmt.Fprintf(out, "\n%s\n", lt.Comments)
			}
			return nil
		}

		text, err := store.Text(n, lang)
		if err != nil {
			return err
		}
		rendered, err := rendererFor(out)(tui.FormatHexagram(h, text))
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("lang", "l", "", "Locale of the reference text")
	showCmd.Flags().Int("line", 0, "Only print the text of this line (1-6)")
}
