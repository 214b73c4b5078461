package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/hexcast/pkg/domain"
)

const (
	yangLine = "━━━━━━━━━━━"
	yinLine  = "━━━━   ━━━━"
)

// Figure draws the pattern top line first. Changing lines are marked
// with o (old yang) and x (old yin).
func Figure(p domain.Pattern, changing domain.ChangingLines) string {
	var b strings.Builder
	for i := len(p) - 1; i >= 0; i-- {
		line, mark := yinLine, "x"
		if p[i] == 1 {
			line, mark = yangLine, "o"
		}
		if !changing[i] {
			mark = " "
		}
		fmt.Fprintf(&b, "%d  %s  %s\n", i+1, line, mark)
	}
	return b.String()
}

// FormatReading renders a reading as markdown. text and interpretation
// are optional.
func FormatReading(r domain.Reading, text *domain.LocalizedHexagramText, interpretation string) string {
	var b strings.Builder
	h := r.Hexagram
	fmt.Fprintf(&b, "# %d. %s · %s\n\n", h.Number, h.Name, h.Title)
	fmt.Fprintf(&b, "```\n%s```\n\n", Figure(r.Pattern, r.Changing))
	fmt.Fprintf(&b, "- **Upper:** %s, %s (%s)\n", h.Upper.Name, h.Upper.Title, h.Upper.Image)
	fmt.Fprintf(&b, "- **Lower:** %s, %s (%s)\n", h.Lower.Name, h.Lower.Title, h.Lower.Image)
	fmt.Fprintf(&b, "- **Pattern:** `%s`\n", r.Pattern)
	if positions := r.Changing.Positions(); len(positions) > 0 {
		fmt.Fprintf(&b, "- **Changing lines:** %s\n", joinInts(positions))
	}
	if r.Resulting != nil {
		fmt.Fprintf(&b, "- **Resulting:** %d. %s · %s\n", r.Resulting.Number, r.Resulting.Name, r.Resulting.Title)
	}

	switch {
	case interpretation != "":
		fmt.Fprintf(&b, "\n%s\n", strings.TrimSpace(interpretation))
	case text != nil:
		fmt.Fprintf(&b, "\n*%s*\n\n", text.Symbolic)
		fmt.Fprintf(&b, "## Judgment\n\n%s\n\n", text.Judgment.Text)
		fmt.Fprintf(&b, "## Image\n\n%s\n", text.Image.Text)
		for _, i := range r.Changing.Positions() {
			if line, ok := text.Line(i); ok {
				fmt.Fprintf(&b, "\n**Line %d.** %s\n", i, line.Text)
			}
		}
	}
	return b.String()
}

// FormatHexagram renders the reference text of one hexagram, all lines included.
func FormatHexagram(h domain.Hexagram, text domain.LocalizedHexagramText) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %d. %s\n\n", h.Number, text.Name)
	fmt.Fprintf(&b, "```\n%s```\n\n", Figure(h.Pattern, domain.ChangingLines{}))
	fmt.Fprintf(&b, "*%s*\n\n", text.Symbolic)
	fmt.Fprintf(&b, "## Judgment\n\n%s\n\n", text.Judgment.Text)
	if text.Judgment.Comments != "" {
		fmt.Fprintf(&b, "%s\n\n", text.Judgment.Comments)
	}
	fmt.Fprintf(&b, "## Image\n\n%s\n\n", text.Image.Text)
	if text.Image.Comments != "" {
		fmt.Fprintf(&b, "%s\n\n", text.Image.Comments)
	}
	b.WriteString("## Lines\n")
	for i := 1; i <= domain.NumberOfTosses; i++ {
		if line, ok := text.Line(i); ok {
			fmt.Fprintf(&b, "\n**%d.** %s\n", i, line.Text)
		}
	}
	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
