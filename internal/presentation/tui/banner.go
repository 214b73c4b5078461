package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	` _                              _   `,
	`| |__   _____  _____ __ _ ___| |_ `,
	`| '_ \ / _ \ \/ / __/ _' / __| __|`,
	`| | | |  __/>  < (_| (_| \__ \ |_ `,
	`|_| |_|\___/_/\_\___\__,_|___/\__|`,
}

// Ink-to-cinnabar gradient, one color per banner line.
var bannerColors = []string{"#94a3b8", "#a8a29e", "#f59e0b", "#ea580c", "#dc2626"}

// PrintBanner writes the hexcast banner to w using the terminal color profile.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	fmt.Fprintln(w)
}
