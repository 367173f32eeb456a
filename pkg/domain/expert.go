package domain

import (
	"strings"
	"unicode"
)

// Expert is a persona consulted by the panel.
// Description is injected verbatim into the expert prompt.
type Expert struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Avatar      string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// DisplayName returns Name, or a title-cased form of the ID when no name was set
// ("risk_manager" -> "Risk Manager").
func (e Expert) DisplayName() string {
	if strings.TrimSpace(e.Name) != "" {
		return e.Name
	}
	words := strings.Fields(strings.ReplaceAll(e.ID, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Usable reports whether the expert can be consulted.
func (e Expert) Usable() bool {
	return strings.TrimSpace(e.ID) != "" && strings.TrimSpace(e.Description) != ""
}

// DefaultExperts returns the seed roster used for fresh sessions.
func DefaultExperts() []Expert {
	return []Expert{
		{
			ID:          "graph_specialist",
			Description: "A specialist in graph structures. Deeply familiar with algorithms and networks and always analyses problems from that angle.",
			Name:        "Graph Theorist",
			Avatar:      "🕸️",
		},
		{
			ID:          "tech_expert",
			Description: "A technology expert. Analyses technical feasibility, required resources and development timelines.",
			Name:        "Tech Architect",
			Avatar:      "👨‍💻",
		},
		{
			ID:          "math_expert",
			Description: "A mathematician versed in many fields with particular strength in applied mathematics. Loves formalisation and analyses things mathematically.",
			Name:        "Applied Mathematician",
			Avatar:      "📐",
		},
		{
			ID:          "money_hunter",
			Description: "A wealthy economist. Always asks whether something can become an asset, or what it would take to make it one. Loves finance and economics.",
			Name:        "Investor & Economist",
			Avatar:      "💰",
		},
		{
			ID:          "layman_takehashi",
			Description: "Takehashi, a close friend of the user. Smart but a layman in most areas and not very worldly, yet always thinks the user's question through as hard as possible from their own standpoint.",
			Name:        "My Friend Takehashi",
			Avatar:      "🙆",
		},
	}
}
