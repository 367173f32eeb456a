package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState(sessionID)
		state.Experts = []domain.Expert{
			{ID: "b", Description: "second in name order, first in roster"},
			{ID: "a", Description: "loves cats", Name: "Cat Person", Avatar: "🐱"},
		}
		state.Model = domain.ModelConfig{ModelName: "gpt-4o", Temperature: 1.1}
		state.Transcript = []domain.Turn{{
			ID:       "t1",
			Question: "pick a pet",
			Answer:   "a cat",
			Opinions: []domain.OpinionResult{
				{ExpertID: "b", Err: &domain.OpinionError{Kind: domain.OpinionTimeout, Message: "slow"}},
				{ExpertID: "a", Text: "cats"},
			},
			Model: state.Model,
		}}

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Experts, loaded.Experts, "roster order must survive persistence")
		assert.Equal(t, state.Model, loaded.Model)
		require.Len(t, loaded.Transcript, 1)
		assert.Equal(t, "a cat", loaded.Transcript[0].Answer)
		require.Len(t, loaded.Transcript[0].Opinions, 2)
		assert.False(t, loaded.Transcript[0].Opinions[0].OK())
		assert.Equal(t, "cats", loaded.Transcript[0].Opinions[1].Text)
	})

	t.Run("Save Isolates Caller", func(t *testing.T) {
		state := domain.NewSessionState(sessionID)
		require.NoError(t, store.Save(ctx, sessionID, state))
		state.Experts[0].Description = "mutated after save"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated after save", loaded.Experts[0].Description)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSessionState(sessionID)))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState(id1))
		_ = store.Save(ctx, id2, domain.NewSessionState(id2))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
