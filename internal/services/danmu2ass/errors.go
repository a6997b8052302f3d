package danmu2ass

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a conversion failure.
type ErrorKind int

const (
	// KindSpawnFailed means the process could not be started.
	KindSpawnFailed ErrorKind = iota + 1
	// KindToolFailed means the process exited with a failure status.
	KindToolFailed
	// KindTimedOut means the configured time limit elapsed.
	KindTimedOut
	// KindCanceled means the caller abandoned the run.
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindSpawnFailed:
		return "spawn failed"
	case KindToolFailed:
		return "tool failed"
	case KindTimedOut:
		return "timed out"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ConversionError reports a failed converter run.
type ConversionError struct {
	Kind   ErrorKind
	Target string
	// ExitCode is -1 unless the process exited on its own.
	ExitCode int
	// Output is whatever the tool wrote to stdout before failing.
	Output []byte
	// Diagnostic is the tool's stderr text.
	Diagnostic string
	Err        error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("danmu2ass %s for %s", e.Kind, e.Target)
	if e.Kind == KindToolFailed && e.ExitCode >= 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// AsConversionError extracts a *ConversionError from err's chain.
func AsConversionError(err error) (*ConversionError, bool) {
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		return convErr, true
	}
	return nil, false
}
