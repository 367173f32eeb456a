package prompt_test

import (
	"testing"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/prompt"
	"github.com/stretchr/testify/assert"
)

func TestSystem_Expert(t *testing.T) {
	got := prompt.System(domain.StageCollection, "  a cat lover ")
	assert.Contains(t, got, "You are a cat lover.")
	assert.Contains(t, got, "say plainly that you do not know")
}

func TestSystem_SynthesisDefaultsToModerator(t *testing.T) {
	got := prompt.System(domain.StageSynthesis, "")
	assert.Contains(t, got, "You are "+prompt.ModeratorPersona+".")
	assert.Contains(t, got, "Integrate them into one answer")
}

func TestSystem_DoesNotEscapePersona(t *testing.T) {
	got := prompt.System(domain.StageCollection, `a "quoted" <persona> & co`)
	assert.Contains(t, got, `a "quoted" <persona> & co`)
}
