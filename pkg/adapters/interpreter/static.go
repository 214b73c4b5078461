package interpreter

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/hexcast/pkg/content"
	"github.com/aretw0/hexcast/pkg/ports"
)

// Static composes an interpretation offline from the reference text:
// the judgment, the image and the text of every changing line, followed by
// the judgment of the resulting hexagram.
type Static struct {
	store *content.Store
}

// NewStatic creates an offline interpreter over store.
func NewStatic(store *content.Store) *Static {
	return &Static{store: store}
}

var _ ports.Interpreter = (*Static)(nil)

// Interpret renders a markdown interpretation.
func (s *Static) Interpret(ctx context.Context, req ports.InterpretationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := s.store.Text(req.Hexagram, req.Locale)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %d. %s\n\n", text.Number, text.Name)
	if req.Intention != "" {
		fmt.Fprintf(&b, "> %s\n\n", req.Intention)
	}
	fmt.Fprintf(&b, "*%s*\n\n", text.Symbolic)
	fmt.Fprintf(&b, "%s\n\n", text.Judgment.Text)
	fmt.Fprintf(&b, "%s\n", text.Image.Text)

	for _, i := range req.Changing {
		line, err := s.store.LineText(req.Hexagram, i, req.Locale)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n- %s\n", line.Text)
	}

	if req.Resulting != 0 {
		next, err := s.store.Text(req.Resulting, req.Locale)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "\n## → %d. %s\n\n%s\n", next.Number, next.Name, next.Judgment.Text)
	}
	return b.String(), nil
}
