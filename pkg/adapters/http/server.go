package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
	"github.com/aretw0/panel/pkg/session"
	"github.com/aretw0/panel/pkg/settings"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// DefaultMaxBodyBytes bounds request bodies, snapshots included.
const DefaultMaxBodyBytes = 1 << 20

// Server serves the panel web chat and its JSON API.
type Server struct {
	asker    session.Asker
	sessions *session.Manager
	streams  *StreamManager
	metrics  http.Handler
	logger   *slog.Logger
	maxBody  int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams sets the stream manager used for /events. Its Hooks must be
// installed on the engine for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// NewHandler creates the HTTP handler for the panel.
func NewHandler(asker session.Asker, sessions *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		asker:    asker,
		sessions: sessions,
		logger:   logging.NewNop(),
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.ChatPage)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetSpec)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Get("/sessions", s.ListSessions)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Post("/ask", s.Ask)
		r.Get("/events", s.SubscribeEvents)
		r.Get("/transcript", s.GetTranscript)

		r.Get("/experts", s.ListExperts)
		r.Post("/experts", s.RegisterExpert)
		r.Get("/experts/export", s.ExportExperts)
		r.Post("/experts/import", s.ImportExperts)
		r.Put("/experts/{expertID}", s.UpdateExpert)
		r.Delete("/experts/{expertID}", s.RemoveExpert)

		r.Get("/model", s.GetModel)
		r.Put("/model", s.SetModel)
		r.Get("/model/export", s.ExportModel)
		r.Post("/model/import", s.ImportModel)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "panel-http",
		"version":     strings.TrimSpace(panel.Version),
		"api_version": apiVersion,
	})
}

// GetSpec serves the embedded OpenAPI document.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	if _, err := GetSwagger(); err != nil {
		http.Error(w, "Failed to load spec", http.StatusInternalServerError)
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	w.Write(rawSpec)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetSession handles GET /sessions/{id}. Unknown sessions are started.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.LoadOrStart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetTranscript handles GET /sessions/{id}/transcript.
func (s *Server) GetTranscript(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	turns := state.Transcript
	if turns == nil {
		turns = []domain.Turn{}
	}
	s.writeJSON(w, http.StatusOK, turns)
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /sessions/{id}/ask. Progress is streamed to the
// session's /events subscribers while the request runs.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var body askRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}

	sessionID := chi.URLParam(r, "id")
	resp, err := s.sessions.Ask(r.Context(), sessionID, s.asker, body.Question)
	if err != nil && resp == nil {
		s.writeError(w, r, err)
		return
	}
	if err != nil {
		s.logger.Warn("Ask: transcript not saved", "session_id", sessionID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ListExperts handles GET /sessions/{id}/experts.
func (s *Server) ListExperts(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.LoadOrStart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Experts)
}

// RegisterExpert handles POST /sessions/{id}/experts.
func (s *Server) RegisterExpert(w http.ResponseWriter, r *http.Request) {
	var e domain.Expert
	if err := s.decode(w, r, &e); err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}
	state, err := s.sessions.MutateRegistry(r.Context(), chi.URLParam(r, "id"), func(reg *registry.Registry) error {
		return reg.Register(e)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, state.Experts)
}

// UpdateExpert handles PUT /sessions/{id}/experts/{expertID}.
func (s *Server) UpdateExpert(w http.ResponseWriter, r *http.Request) {
	var e domain.Expert
	if err := s.decode(w, r, &e); err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}
	e.ID = chi.URLParam(r, "expertID")
	state, err := s.sessions.MutateRegistry(r.Context(), chi.URLParam(r, "id"), func(reg *registry.Registry) error {
		return reg.Update(e)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Experts)
}

// RemoveExpert handles DELETE /sessions/{id}/experts/{expertID}.
func (s *Server) RemoveExpert(w http.ResponseWriter, r *http.Request) {
	expertID := chi.URLParam(r, "expertID")
	_, err := s.sessions.MutateRegistry(r.Context(), chi.URLParam(r, "id"), func(reg *registry.Registry) error {
		return reg.Remove(expertID)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportExperts handles GET /sessions/{id}/experts/export?format=json|yaml.
func (s *Server) ExportExperts(w http.ResponseWriter, r *http.Request) {
	reg, err := s.sessions.Registry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var data []byte
	contentType := "application/json"
	if isYAML(r) {
		data, err = reg.ExportYAML()
		contentType = "application/yaml"
	} else {
		data, err = reg.ExportSnapshot()
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// ImportExperts handles POST /sessions/{id}/experts/import?format=json|yaml.
// The roster is replaced only if the whole document is valid.
func (s *Server) ImportExperts(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}
	yamlDoc := isYAML(r)
	state, err := s.sessions.MutateRegistry(r.Context(), chi.URLParam(r, "id"), func(reg *registry.Registry) error {
		if yamlDoc {
			return reg.ImportYAML(data)
		}
		return reg.ImportSnapshot(data)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Experts)
}

// GetModel handles GET /sessions/{id}/model.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.LoadOrStart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Model)
}

// SetModel handles PUT /sessions/{id}/model.
func (s *Server) SetModel(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ModelConfig
	if err := s.decode(w, r, &cfg); err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}
	state, err := s.sessions.SetModel(r.Context(), chi.URLParam(r, "id"), cfg)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Model)
}

// ExportModel handles GET /sessions/{id}/model/export.
func (s *Server) ExportModel(w http.ResponseWriter, r *http.Request) {
	state, err := s.sessions.LoadOrStart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := settings.Encode(state.Model)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// ImportModel handles POST /sessions/{id}/model/import.
func (s *Server) ImportModel(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeBadRequest(w, "Invalid request body", err)
		return
	}
	state, err := s.sessions.MutateModel(r.Context(), chi.URLParam(r, "id"), func(st *settings.Store) error {
		return st.Import(data)
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state.Model)
}

func isYAML(r *http.Request) bool {
	f := strings.ToLower(r.URL.Query().Get("format"))
	return f == "yaml" || f == "yml"
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(v)
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
