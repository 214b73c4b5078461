package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/hexcast/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedPhases []domain.Phase
	CurrentPhase  domain.Phase
}

// OverlayFor builds an overlay from a session snapshot. Phases before the
// current one in flow order count as visited.
func OverlayFor(state *domain.SessionState) *GraphOverlay {
	if state == nil {
		return nil
	}
	overlay := &GraphOverlay{CurrentPhase: state.Phase}
	for _, p := range domain.Phases {
		if p == state.Phase {
			break
		}
		overlay.VisitedPhases = append(overlay.VisitedPhases, p)
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart of the session machine.
// Shapes:
// - Idle: ((Circle))
// - Pending (waiting on a collaborator): [[Subroutine]]
// - Persisted: ([Stadium])
// - Default: [Rectangle]
// Reset edges are dotted. Overlay styles are applied if provided.
func GenerateMermaid(transitions []domain.Transition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.Phase]bool)
	declare := func(p domain.Phase) {
		if seen[p] {
			return
		}
		seen[p] = true

		opener, closer := "[", "]"
		switch p {
		case domain.PhaseIdle:
			opener, closer = "((", "))"
		case domain.PhaseInterpretationPending:
			opener, closer = "[[", "]]"
		case domain.PhasePersisted:
			opener, closer = "([", "])"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(string(p)), opener, p, closer))
	}

	for _, t := range transitions {
		declare(t.From)
		declare(t.To)
	}

	for _, t := range transitions {
		label := strings.ReplaceAll(t.Trigger, "\"", "'")
		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if t.To == domain.PhaseIdle {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(string(t.From)), arrow, sanitizeMermaidID(string(t.To))))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on either theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, p := range overlay.VisitedPhases {
			id := sanitizeMermaidID(string(p))
			if id != "" && !visited[id] {
				visited[id] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
			}
		}
		if overlay.CurrentPhase != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.CurrentPhase))))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
