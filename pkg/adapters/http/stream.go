package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/panel/internal/logging"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/session"
	"github.com/go-chi/chi/v5"
)

// SSE event names sent on /sessions/{id}/events.
const (
	EventOpinion   = "opinion"
	EventSynthesis = "synthesis"
	EventDone      = "done"
	EventError     = "error"
)

// StreamEvent is one server-sent event.
type StreamEvent struct {
	Name string
	Data []byte
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- StreamEvent]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- StreamEvent]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a session. The returned func removes
// it and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan StreamEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan StreamEvent, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- StreamEvent]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
			close(ch)
		})
	}
}

// Subscribers reports how many listeners a session has.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// Broadcast delivers an event to every listener of the session.
// Slow clients with a full buffer miss the event.
func (sm *StreamManager) Broadcast(sessionID string, ev StreamEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- ev:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID, "event", ev.Name)
		}
	}
}

func (sm *StreamManager) publish(ctx context.Context, name string, payload any) {
	sessionID, ok := session.IDFromContext(ctx)
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: encode event failed", "event", name, "err", err)
		return
	}
	sm.Broadcast(sessionID, StreamEvent{Name: name, Data: data})
}

// Hooks turns engine lifecycle events into SSE events. Requests are routed
// by the session ID carried in their context; requests without one are
// not streamed.
func (sm *StreamManager) Hooks() domain.Hooks {
	return domain.Hooks{
		OnOpinion: func(ctx context.Context, e *domain.OpinionEvent) {
			sm.publish(ctx, EventOpinion, e)
		},
		OnSynthesisStart: func(ctx context.Context, e *domain.SynthesisEvent) {
			sm.publish(ctx, EventSynthesis, e)
		},
		OnResponse: func(ctx context.Context, e *domain.ResponseEvent) {
			sm.publish(ctx, EventDone, e)
		},
		OnError: func(ctx context.Context, e *domain.ErrorEvent) {
			sm.publish(ctx, EventError, e)
		},
	}
}

// SubscribeEvents handles GET /sessions/{id}/events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()
	s.logger.Info("SSE: Subscribing to session events", "session_id", sessionID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sessionID)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		}
	}
}
