package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/panel/pkg/domain"
)

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error    string       `json:"error"`
	Code     string       `json:"code,omitempty"`
	Stage    domain.Stage `json:"stage,omitempty"`
	ExpertID string       `json:"expert_id,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return http.StatusBadRequest, "empty_question"
	case errors.Is(err, domain.ErrInputTooLarge):
		return http.StatusBadRequest, "input_too_large"
	case errors.Is(err, domain.ErrInvalidUTF8):
		return http.StatusBadRequest, "invalid_utf8"
	case errors.Is(err, domain.ErrEmptyPanel):
		return http.StatusBadRequest, "empty_panel"
	case errors.Is(err, domain.ErrInvalidSnapshot):
		return http.StatusBadRequest, "invalid_snapshot"
	case errors.Is(err, domain.ErrInvalidExpert):
		return http.StatusBadRequest, "invalid_expert"
	case errors.Is(err, domain.ErrUnsupportedModel):
		return http.StatusBadRequest, "unsupported_model"
	case errors.Is(err, domain.ErrInvalidTemperature):
		return http.StatusBadRequest, "invalid_temperature"
	case errors.Is(err, domain.ErrDuplicateExpert):
		return http.StatusConflict, "duplicate_expert"
	case errors.Is(err, domain.ErrUnknownExpert):
		return http.StatusNotFound, "unknown_expert"
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrInvoker):
		return http.StatusBadGateway, "invoker_failed"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}

	var invErr *domain.InvokerError
	if errors.As(err, &invErr) {
		body.Stage = invErr.Stage
		body.ExpertID = invErr.ExpertID
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Warn("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, body)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, "err", err)
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	}
	s.writeJSON(w, status, errorBody{Error: msg + ": " + err.Error(), Code: "bad_request"})
}
