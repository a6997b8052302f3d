package mpv

import (
	"fmt"

	"danmaku/internal/services"
)

var (
	// ErrPropertyUnavailable reports a property mpv does not have or cannot
	// provide right now.
	ErrPropertyUnavailable = fmt.Errorf("mpv property unavailable: %w", services.ErrNotFound)
	// ErrCommandFailed reports any other non-success reply.
	ErrCommandFailed = fmt.Errorf("mpv command failed: %w", services.ErrHost)
	// ErrClosed reports that the IPC connection is gone.
	ErrClosed = fmt.Errorf("mpv connection closed: %w", services.ErrHost)
)

func replyError(command, message string) error {
	switch message {
	case "property unavailable", "property not found":
		return fmt.Errorf("%w: %s: %s", ErrPropertyUnavailable, command, message)
	default:
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, command, message)
	}
}
