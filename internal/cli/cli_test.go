package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/panel/internal/config"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, store string) *App {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv("PANEL_SESSION_DIR", filepath.Join(t.TempDir(), "sessions"))
	t.Setenv("PANEL_SQLITE_PATH", filepath.Join(t.TempDir(), "panel.db"))
	t.Setenv("PANEL_OPENAI_API_KEY", "")
	t.Setenv("PANEL_KAFKA_BROKERS", "")

	app, err := NewApp(Options{Store: store, Offline: true, SessionID: "t"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_Stores(t *testing.T) {
	for _, store := range []string{config.StoreMemory, config.StoreFile, config.StoreSQLite} {
		t.Run(store, func(t *testing.T) {
			app := newTestApp(t, store)
			assert.Equal(t, store, app.Config.Store)

			require.NoError(t, AddExpert(t.Context(), app, domain.Expert{ID: "x", Description: "X"}))
			state, err := app.Sessions.Load(t.Context(), "t")
			require.NoError(t, err)
			assert.Equal(t, "x", state.Experts[len(state.Experts)-1].ID)
		})
	}

	t.Run("Unknown Store", func(t *testing.T) {
		t.Setenv(config.EnvConfigFile, "")
		_, err := NewApp(Options{Store: "postgres"})
		assert.ErrorContains(t, err, "unknown store")
	})
}

func TestNewEngine_RequiresAPIKey(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	app.offline = false

	_, err := app.NewEngine(t.Context())
	assert.ErrorContains(t, err, "PANEL_OPENAI_API_KEY")

	app.Config.OpenAIAPIKey = "sk-test"
	engine, err := app.NewEngine(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, engine.Invoker())
}

func TestRunAsk_Offline(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	var out bytes.Buffer

	require.NoError(t, RunAsk(t.Context(), app, "Should I learn Go?", AskOptions{Out: &out}))

	text := out.String()
	for _, e := range domain.DefaultExperts() {
		assert.Contains(t, text, e.Name+" ("+e.ID+")")
	}
	assert.Contains(t, text, ">>> Moderator is synthesizing 5 of 5 opinions...")
	assert.Contains(t, text, "Moderator: 5 of 5 experts answered (model gpt-4o-mini).")

	state, err := app.Sessions.Load(t.Context(), "t")
	require.NoError(t, err)
	require.Len(t, state.Transcript, 1)
	assert.Equal(t, "Should I learn Go?", state.Transcript[0].Question)
}

func TestRunAsk_JSON(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	var out bytes.Buffer

	require.NoError(t, RunAsk(t.Context(), app, "hi", AskOptions{Out: &out, JSON: true}))

	var resp domain.PanelResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "hi", resp.Question)
	assert.Len(t, resp.Opinions, len(domain.DefaultExperts()))
	assert.NotContains(t, out.String(), ">>>")
}

func TestRunAsk_EmptyQuestion(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	err := RunAsk(t.Context(), app, "   ", AskOptions{Out: &bytes.Buffer{}})
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestRunChat(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	var out bytes.Buffer

	err := RunChat(t.Context(), app, strings.NewReader("first\n\nsecond\nexit\nignored\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Moderator: 5 of 5 experts answered"))

	state, err := app.Sessions.Load(t.Context(), "t")
	require.NoError(t, err)
	require.Len(t, state.Transcript, 2)
	assert.Equal(t, "second", state.Transcript[1].Question)
}

func TestExpertsCommands(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	ctx := t.Context()

	n, err := ImportExperts(ctx, app, strings.NewReader("a:\n  description: cats\nb:\n  description: dogs\n"), "yaml")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, AddExpert(ctx, app, domain.Expert{ID: "a", Description: "again"}), domain.ErrDuplicateExpert)
	require.NoError(t, UpdateExpert(ctx, app, domain.Expert{ID: "a", Name: "Cat Person"}))
	assert.ErrorIs(t, UpdateExpert(ctx, app, domain.Expert{ID: "zz", Description: "z"}), domain.ErrUnknownExpert)
	assert.ErrorIs(t, RemoveExpert(ctx, app, "zz"), domain.ErrUnknownExpert)

	var out bytes.Buffer
	require.NoError(t, ExportExperts(ctx, app, &out, "json"))
	assert.JSONEq(t, `{"a":{"description":"cats","name":"Cat Person"},"b":{"description":"dogs"}}`, out.String())

	out.Reset()
	require.NoError(t, ListExperts(ctx, app, &out, false))
	assert.Contains(t, out.String(), "Cat Person")
	assert.Contains(t, out.String(), "ID")

	_, err = ImportExperts(ctx, app, strings.NewReader(`{"c":{}}`), "json")
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)

	require.NoError(t, RemoveExpert(ctx, app, "a"))
	out.Reset()
	require.NoError(t, GraphExperts(ctx, app, &out, false))
	assert.Contains(t, out.String(), "expert_b")
	assert.NotContains(t, out.String(), "expert_a")
}

func TestModelCommands(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	ctx := t.Context()

	temp := 0.1
	cfg, err := SetModel(ctx, app, nil, &temp)
	require.NoError(t, err)
	assert.Equal(t, domain.ModelConfig{ModelName: "gpt-4o-mini", Temperature: 0.1}, cfg)

	bad := "gpt-3"
	_, err = SetModel(ctx, app, &bad, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedModel)

	_, err = ImportModel(ctx, app, strings.NewReader(`{"model_name":"gpt-4o","temperature":"hot"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidSnapshot)

	cfg, err = ImportModel(ctx, app, strings.NewReader(`{"model_name":"gpt-4o","temperature":1.0}`))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.ModelName)

	var out bytes.Buffer
	require.NoError(t, ExportModel(ctx, app, &out))
	assert.JSONEq(t, `{"model_name":"gpt-4o","temperature":1}`, out.String())

	out.Reset()
	require.NoError(t, ShowModel(ctx, app, &out))
	assert.Contains(t, out.String(), "gpt-4o")
}

func TestNewApp_ConfiguredModelSeedsSessions(t *testing.T) {
	t.Setenv("PANEL_MODEL", "gpt-4o")
	t.Setenv("PANEL_TEMPERATURE", "1.5")
	app := newTestApp(t, config.StoreMemory)

	var out bytes.Buffer
	require.NoError(t, ShowModel(t.Context(), app, &out))
	assert.Contains(t, out.String(), "model:       gpt-4o\n")
	assert.Contains(t, out.String(), "temperature: 1.5")

	state, err := app.Sessions.Load(t.Context(), "t")
	require.NoError(t, err)
	assert.Equal(t, domain.ModelConfig{ModelName: "gpt-4o", Temperature: 1.5}, state.Model)
}

func TestNewServeHandler(t *testing.T) {
	app := newTestApp(t, config.StoreMemory)
	h, err := NewServeHandler(t.Context(), app)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/sessions/web/ask", strings.NewReader(`{"question":"hi"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `panel_requests_total{outcome="ok"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": "json", "JSON": "json", "yml": "yaml", "yaml": "yaml"} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("toml")
	assert.Error(t, err)
}
