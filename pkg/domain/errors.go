package domain

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion is returned when the question is blank. No model call is made.
var ErrEmptyQuestion = errors.New("question is empty")

// ErrEmptyPanel is returned when no experts are registered at invocation time.
var ErrEmptyPanel = errors.New("panel has no experts")

// ErrInputTooLarge is returned when a question exceeds the configured size limit.
var ErrInputTooLarge = errors.New("input exceeds maximum allowed size")

// ErrInvalidUTF8 is returned when a question is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input contains invalid UTF-8 sequences")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnsupportedModel is returned when a model name is not in SupportedModels.
var ErrUnsupportedModel = errors.New("unsupported model")

// ErrInvalidTemperature is returned when a temperature is outside [MinTemperature, MaxTemperature].
var ErrInvalidTemperature = errors.New("invalid temperature")

// ErrInvalidExpert is returned when an expert lacks an id or a description.
var ErrInvalidExpert = errors.New("expert id and description are required")

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrDuplicateExpert = errors.New("duplicate expert")
	ErrUnknownExpert   = errors.New("unknown expert")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrInvoker         = errors.New("model invocation failed")
)

// DuplicateExpertError reports a register call for an id that already exists.
type DuplicateExpertError struct {
	ID string
}

func (e *DuplicateExpertError) Error() string {
	return fmt.Sprintf("expert %q already registered", e.ID)
}

func (e *DuplicateExpertError) Is(target error) bool { return target == ErrDuplicateExpert }

// UnknownExpertError reports an update or remove for an id that is not registered.
type UnknownExpertError struct {
	ID string
}

func (e *UnknownExpertError) Error() string {
	return fmt.Sprintf("expert %q not found", e.ID)
}

func (e *UnknownExpertError) Is(target error) bool { return target == ErrUnknownExpert }

// InvalidSnapshotError reports a malformed import payload.
// The target of the import is left unchanged.
type InvalidSnapshotError struct {
	Reason string
	Err    error
}

func (e *InvalidSnapshotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid snapshot: %s: %v", e.Reason, e.Err)
	}
	return "invalid snapshot: " + e.Reason
}

func (e *InvalidSnapshotError) Is(target error) bool { return target == ErrInvalidSnapshot }

func (e *InvalidSnapshotError) Unwrap() error { return e.Err }

// InvokerError wraps a failed model call with the stage and expert it belongs to.
// ExpertID is empty for the synthesis stage.
type InvokerError struct {
	Stage    Stage
	ExpertID string
	Err      error
}

func (e *InvokerError) Error() string {
	if e.ExpertID != "" {
		return fmt.Sprintf("%s: expert %q: %v", e.Stage, e.ExpertID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InvokerError) Is(target error) bool { return target == ErrInvoker }

func (e *InvokerError) Unwrap() error { return e.Err }
