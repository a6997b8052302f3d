package services

import (
	"errors"
	"strings"
)

// Markers classify failures. Callers test for them with errors.Is.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrHost          = errors.New("host error")
)

// Error is a failure tagged with a marker and the stage/operation it came
// from. It unwraps to both the marker and the underlying cause.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	b.WriteString(": ")
	b.WriteString(e.detail())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

func (e *Error) detail() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.Stage, e.Operation, e.Message} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Wrap tags err with marker (ErrTransient when nil) and the stage context.
// err may be nil when the failure has no underlying cause.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{Marker: marker, Stage: stage, Operation: operation, Message: message, Err: err}
}

// EventType maps a run failure to the structured log event type the
// orchestrator reports it under.
func EventType(err error) string {
	switch {
	case err == nil:
		return "run_completed"
	case errors.Is(err, ErrTimeout):
		return "run_timed_out"
	case errors.Is(err, ErrExternalTool):
		return "converter_failed"
	case errors.Is(err, ErrValidation):
		return "identifier_invalid"
	case errors.Is(err, ErrConfiguration):
		return "configuration_invalid"
	case errors.Is(err, ErrHost), errors.Is(err, ErrNotFound):
		return "host_call_failed"
	default:
		return "run_failed"
	}
}
