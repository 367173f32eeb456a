package domain_test

import (
	"context"
	"testing"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.Hooks{
		OnOpinion: func(ctx context.Context, e *domain.OpinionEvent) { calls = append(calls, "a:"+e.Result.ExpertID) },
	}
	b := domain.Hooks{
		OnOpinion:  func(ctx context.Context, e *domain.OpinionEvent) { calls = append(calls, "b:"+e.Result.ExpertID) },
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) { calls = append(calls, "b:done") },
	}

	merged := a.Merge(b)
	merged.OnOpinion(context.Background(), &domain.OpinionEvent{Result: domain.OpinionResult{ExpertID: "x"}})
	merged.OnResponse(context.Background(), &domain.ResponseEvent{})

	assert.Equal(t, []string{"a:x", "b:x", "b:done"}, calls)
	assert.Nil(t, merged.OnError)
}
