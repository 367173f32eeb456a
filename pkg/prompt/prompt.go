// Package prompt renders the system messages sent to chat-completion backends.
package prompt

import (
	"strings"
	"text/template"

	"github.com/aretw0/panel/pkg/domain"
)

// ModeratorPersona is the persona used for the synthesis call.
const ModeratorPersona = "an impartial moderator who merges the opinions of several experts into one balanced, comprehensive conclusion"

var expertTmpl = template.Must(template.New("expert").Parse(
	`You are {{.Persona}}.
Give your opinion on the question or topic the user sends.
Think it through thoroughly from your own position and point of view.
If there is something you do not know, say plainly that you do not know.`))

var moderatorTmpl = template.Must(template.New("moderator").Parse(
	`You are {{.Persona}}.
The user message contains the opinions of a panel of experts followed by the original question.
Integrate them into one answer. Do not invent opinions the panel did not give.`))

// System returns the system message for a call in the given stage.
// An empty persona in the synthesis stage falls back to ModeratorPersona.
func System(stage domain.Stage, persona string) string {
	tmpl := expertTmpl
	if stage == domain.StageSynthesis {
		tmpl = moderatorTmpl
		if strings.TrimSpace(persona) == "" {
			persona = ModeratorPersona
		}
	}

	var b strings.Builder
	// Execute cannot fail: the data is a plain struct with a string field.
	_ = tmpl.Execute(&b, struct{ Persona string }{strings.TrimSpace(persona)})
	return b.String()
}
