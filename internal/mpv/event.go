package mpv

// Event names delivered by mpv.
const (
	EventFileLoaded = "file-loaded"
	EventShutdown   = "shutdown"
	EventStartFile  = "start-file"
	EventEndFile    = "end-file"
)

// Event is one unsolicited message from mpv.
type Event struct {
	Name string
	// Reason is set for end-file events.
	Reason string
}

// IsMediaLoaded reports whether the event starts a new pipeline run.
func (e Event) IsMediaLoaded() bool {
	return e.Name == EventFileLoaded
}

// IsShutdown reports whether mpv is exiting.
func (e Event) IsShutdown() bool {
	return e.Name == EventShutdown
}
