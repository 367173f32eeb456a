package mcp

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/testutils"
	"github.com/aretw0/panel/pkg/adapters/memory"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/aretw0/panel/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, stub *testutils.StubInvoker) (*Server, *session.Manager) {
	t.Helper()
	engine, err := panel.New(stub)
	require.NoError(t, err)
	sessions := session.NewManager(memory.NewStore())
	return NewServer(engine, sessions, nil), sessions
}

func TestAskPanel(t *testing.T) {
	stub := &testutils.StubInvoker{}
	s, sessions := newTestServer(t, stub)

	res, err := s.handleAsk(t.Context(), mcp.CallToolRequest{}, AskArgs{Question: "Why?"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Answer, testutils.SynthesisPrefix))
	assert.Len(t, res.Opinions, len(domain.DefaultExperts()))
	assert.Equal(t, domain.DefaultModelConfig(), res.Model)

	state, err := sessions.Load(t.Context(), DefaultSessionID)
	require.NoError(t, err)
	assert.Len(t, state.Transcript, 1)
}

func TestAskPanel_Errors(t *testing.T) {
	stub := &testutils.StubInvoker{SynthesisErr: errors.New("boom")}
	s, _ := newTestServer(t, stub)

	_, err := s.handleAsk(t.Context(), mcp.CallToolRequest{}, AskArgs{Question: "  ", Session: "x"})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)

	_, err = s.handleAsk(t.Context(), mcp.CallToolRequest{}, AskArgs{Question: "q", Session: "x"})
	assert.ErrorIs(t, err, domain.ErrInvoker)
}

func TestListExperts(t *testing.T) {
	s, sessions := newTestServer(t, &testutils.StubInvoker{})
	_, err := sessions.MutateRegistry(t.Context(), "team", func(r *registry.Registry) error {
		return r.ImportSnapshot([]byte(`{"b":{"description":"B"},"a":{"description":"A"}}`))
	})
	require.NoError(t, err)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"session": "team"}
	res, err := s.handleListExperts(t.Context(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var experts []domain.Expert
	require.NoError(t, json.Unmarshal([]byte(text.Text), &experts))
	require.Len(t, experts, 2)
	assert.Equal(t, "b", experts[0].ID)
	assert.Equal(t, "a", experts[1].ID)
}

func TestExpertsResource(t *testing.T) {
	s, _ := newTestServer(t, &testutils.StubInvoker{})

	contents, err := s.readExperts(t.Context(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, ExpertsURI, text.URI)
	for _, e := range domain.DefaultExperts() {
		assert.Contains(t, text.Text, `"`+e.ID+`"`)
	}
}
