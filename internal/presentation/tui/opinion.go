package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/muesli/termenv"
)

// ExpertHeading formats the line announcing an expert's opinion, e.g.
// "📐 Applied Mathematician (math_expert) · 1.2s". Failed opinions are
// shown in red with their failure kind.
func ExpertHeading(e domain.Expert, r domain.OpinionResult) string {
	p := termenv.ColorProfile()

	name := e.ID
	if e.Name != "" {
		name = fmt.Sprintf("%s (%s)", e.Name, e.ID)
	}
	if e.Avatar != "" {
		name = e.Avatar + " " + name
	}

	meta := r.Elapsed.Round(100 * time.Millisecond).String()
	title := termenv.String(name).Bold()
	if r.Err != nil {
		title = title.Foreground(p.Color("#fb7185"))
		meta = fmt.Sprintf("%s · %s", r.Err.Kind, meta)
	} else {
		title = title.Foreground(p.Color("#a78bfa"))
	}
	return fmt.Sprintf("%s %s", title, termenv.String("· "+meta).Faint())
}

// OpinionBody returns the text shown under an expert heading.
func OpinionBody(r domain.OpinionResult) string {
	if r.Err != nil {
		return fmt.Sprintf("(could not produce an answer: %s)", r.Err.Message)
	}
	return strings.TrimSpace(r.Text)
}
