package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/panel/pkg/domain"
)

// Overlay marks the outcome of a finished request on the diagram.
type Overlay struct {
	Opinions []domain.OpinionResult
}

// GenerateMermaid draws the panel as a fan-out/fan-in flowchart:
// Question ((circle)) to every expert [rectangle] to the Moderator
// [[subroutine]] to the Answer. With an overlay, answered experts are
// styled "ok" and failed ones "failed" with a dotted edge and the
// failure kind as label.
func GenerateMermaid(experts []domain.Expert, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    question((\"Question\"))\n")
	sb.WriteString("    moderator[[\"Moderator\"]]\n")

	failed := make(map[string]domain.OpinionErrorKind)
	if overlay != nil {
		for _, op := range overlay.Opinions {
			if op.Err != nil {
				failed[op.ExpertID] = op.Err.Kind
			}
		}
	}

	for _, e := range experts {
		safeID := "expert_" + sanitizeMermaidID(e.ID)
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, label(e))
		fmt.Fprintf(&sb, "    question --> %s\n", safeID)
		if kind, ok := failed[e.ID]; ok {
			fmt.Fprintf(&sb, "    %s -. \"%s\" .-> moderator\n", safeID, kind)
		} else {
			fmt.Fprintf(&sb, "    %s --> moderator\n", safeID)
		}
	}
	sb.WriteString("    moderator --> answer[/\"Answer\"/]\n")

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef ok fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:2px,color:#000;\n")
		for _, e := range experts {
			class := "ok"
			if _, ok := failed[e.ID]; ok {
				class = "failed"
			}
			fmt.Fprintf(&sb, "    class expert_%s %s;\n", sanitizeMermaidID(e.ID), class)
		}
	}

	return sb.String()
}

func label(e domain.Expert) string {
	name := e.ID
	if e.Name != "" {
		name = e.Name
	}
	if e.Avatar != "" {
		name = e.Avatar + " " + name
	}
	return strings.ReplaceAll(name, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
