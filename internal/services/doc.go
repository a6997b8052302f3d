// Package services holds the error markers and context keys shared by the
// pipeline and the external tool clients under it.
//
// Wrap tags a failure with a marker (ErrExternalTool, ErrHost, ErrValidation,
// ...) and the stage that produced it; EventType turns the marker back into
// the event_type the orchestrator logs. The context helpers carry the run id,
// stage and mpv request id that logging.WithContext renders.
package services
