package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/panel/pkg/domain"
)

// FormatOpinions renders the opinions, in the order given, as the block the
// synthesis call receives. Each answer becomes "<ID> OPINION:\n<text>" with
// the id upper-cased; a failed expert becomes a placeholder line so the
// moderator knows it was asked.
func FormatOpinions(opinions []domain.OpinionResult) string {
	blocks := make([]string, 0, len(opinions))
	for _, o := range opinions {
		blocks = append(blocks, formatOpinion(o))
	}
	return strings.Join(blocks, "\n\n")
}

func formatOpinion(o domain.OpinionResult) string {
	if !o.OK() {
		return fmt.Sprintf("(%s could not produce an answer: %s)", o.ExpertID, o.Err.Error())
	}
	return strings.ToUpper(o.ExpertID) + " OPINION:\n" + o.Text
}

// BuildSynthesisPrompt assembles the question sent to the synthesis call:
// the opinion block first, then the original question, then the structure
// the conclusion should follow.
func BuildSynthesisPrompt(question, block string) string {
	var b strings.Builder
	b.WriteString("Below are the opinions of different experts. Integrate them and derive a balanced, comprehensive conclusion.\n\n")
	b.WriteString("Expert opinions:\n")
	b.WriteString(block)
	b.WriteString("\n\nOriginal question/topic: ")
	b.WriteString(question)
	b.WriteString("\n\nIntegrated conclusion:\n")
	b.WriteString("1. Main points of agreement\n")
	b.WriteString("2. Important concerns\n")
	b.WriteString("3. Recommended actions\n")
	b.WriteString("4. Points that need further consideration\n\n")
	b.WriteString("Conclusion:")
	return b.String()
}
