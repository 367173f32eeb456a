package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventOpinion        EventType = "opinion"
	EventSynthesisStart EventType = "synthesis_start"
	EventResponse       EventType = "response"
	EventError          EventType = "error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RequestID string    `json:"request_id"`
}

// OpinionEvent is emitted once per expert, in completion order.
type OpinionEvent struct {
	EventBase
	Result OpinionResult `json:"result"`
	// Index is the expert's position in registration order.
	Index int `json:"index"`
	Total int `json:"total"`
}

// SynthesisEvent is emitted when the synthesis call starts.
type SynthesisEvent struct {
	EventBase
	Question string `json:"question"`
	Failed   int    `json:"failed"`
	Total    int    `json:"total"`
}

// ResponseEvent is emitted when a panel request completes successfully.
type ResponseEvent struct {
	EventBase
	Response *PanelResponse `json:"response"`
	Elapsed  time.Duration  `json:"elapsed_ns"`
}

// ErrorEvent is emitted when a panel request fails.
type ErrorEvent struct {
	EventBase
	Stage    Stage  `json:"stage,omitempty"`
	ExpertID string `json:"expert_id,omitempty"`
	Err      error  `json:"-"`
	Message  string `json:"message"`
}

// Hooks defines callbacks for panel observability.
// Any field may be nil. Callbacks run on the goroutine driving the request
// and are never invoked concurrently for the same request.
type Hooks struct {
	OnOpinion        func(context.Context, *OpinionEvent)
	OnSynthesisStart func(context.Context, *SynthesisEvent)
	OnResponse       func(context.Context, *ResponseEvent)
	OnError          func(context.Context, *ErrorEvent)
}

// Merge returns hooks that call h first and then other.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnOpinion:        chain(h.OnOpinion, other.OnOpinion),
		OnSynthesisStart: chain(h.OnSynthesisStart, other.OnSynthesisStart),
		OnResponse:       chain(h.OnResponse, other.OnResponse),
		OnError:          chain(h.OnError, other.OnError),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
