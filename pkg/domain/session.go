package domain

import "time"

// Turn is one question/answer exchange kept in a session transcript.
type Turn struct {
	ID        string          `json:"id"`
	Question  string          `json:"question"`
	Answer    string          `json:"answer"`
	Opinions  []OpinionResult `json:"opinions,omitempty"`
	Model     ModelConfig     `json:"model"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionState is the persisted form of one chat session: its roster,
// model parameters and transcript.
type SessionState struct {
	ID         string      `json:"id"`
	Experts    []Expert    `json:"experts"`
	Model      ModelConfig `json:"model"`
	Transcript []Turn      `json:"transcript,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewSessionState creates a session seeded with the default roster and model.
func NewSessionState(id string) *SessionState {
	return &SessionState{
		ID:        id,
		Experts:   DefaultExperts(),
		Model:     DefaultModelConfig(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Snapshot returns a deep copy safe to hand to another goroutine or store.
func (s *SessionState) Snapshot() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.Experts = append([]Expert(nil), s.Experts...)
	if s.Transcript != nil {
		c.Transcript = make([]Turn, len(s.Transcript))
		for i, t := range s.Transcript {
			t.Opinions = append([]OpinionResult(nil), t.Opinions...)
			c.Transcript[i] = t
		}
	}
	return &c
}
