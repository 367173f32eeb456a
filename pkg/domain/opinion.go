package domain

import "time"

// Stage identifies which phase of a panel request a call belongs to.
type Stage string

const (
	StageCollection Stage = "collection"
	StageSynthesis  Stage = "synthesis"
)

// OpinionErrorKind classifies a failed opinion for display and metrics.
type OpinionErrorKind string

const (
	OpinionTimeout  OpinionErrorKind = "timeout"
	OpinionCanceled OpinionErrorKind = "canceled"
	OpinionInvoker  OpinionErrorKind = "invoker"
)

// OpinionError is the failure marker carried by an OpinionResult.
type OpinionError struct {
	Kind    OpinionErrorKind `json:"kind"`
	Message string           `json:"message"`
}

func (e *OpinionError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// OpinionResult associates an expert with either its answer or a failure marker.
// Exactly one of Text and Err is meaningful.
type OpinionResult struct {
	ExpertID string        `json:"expert_id"`
	Text     string        `json:"text,omitempty"`
	Err      *OpinionError `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed_ns,omitempty"`
}

// OK reports whether the expert produced an answer.
func (r OpinionResult) OK() bool {
	return r.Err == nil
}

// PanelResponse is the outcome of one successful ask.
type PanelResponse struct {
	Question  string          `json:"question"`
	FinalText string          `json:"final_text"`
	Opinions  []OpinionResult `json:"opinions"`
	Model     ModelConfig     `json:"model"`
}

// Failed returns the ids of experts whose opinion carries an error.
func (p *PanelResponse) Failed() []string {
	var ids []string
	for _, o := range p.Opinions {
		if !o.OK() {
			ids = append(ids, o.ExpertID)
		}
	}
	return ids
}
