package runtime_test

import (
	"strings"
	"testing"

	"github.com/aretw0/panel/internal/runtime"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestFormatOpinions(t *testing.T) {
	block := runtime.FormatOpinions([]domain.OpinionResult{
		{ExpertID: "tech_expert", Text: "Use Go."},
		{ExpertID: "b", Err: &domain.OpinionError{Kind: domain.OpinionTimeout, Message: "deadline"}},
		{ExpertID: "c", Text: "Agreed."},
	})

	want := "TECH_EXPERT OPINION:\nUse Go.\n\n" +
		"(b could not produce an answer: timeout: deadline)\n\n" +
		"C OPINION:\nAgreed."
	assert.Equal(t, want, block)
}

func TestFormatOpinions_Empty(t *testing.T) {
	assert.Equal(t, "", runtime.FormatOpinions(nil))
}

func TestBuildSynthesisPrompt_BlockPrecedesQuestion(t *testing.T) {
	p := runtime.BuildSynthesisPrompt("pick a pet", "A OPINION:\nx")

	block := strings.Index(p, "A OPINION:\nx")
	question := strings.Index(p, "pick a pet")
	assert.GreaterOrEqual(t, block, 0)
	assert.Greater(t, question, block)
	for _, heading := range []string{"Main points of agreement", "Important concerns", "Recommended actions", "further consideration"} {
		assert.Contains(t, p, heading)
	}
}
