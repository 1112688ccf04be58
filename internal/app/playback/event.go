package playback

// EventType represents a playback event type.
type EventType int

const (
	EventStarted    EventType = iota // Run started
	EventStopped                     // Run stopped by Stop before the end of the list
	EventCompleted                   // Run reached the end of the list
	EventWordFailed                  // Display callback panicked for a word
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventCompleted:
		return "completed"
	case EventWordFailed:
		return "word_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	Position int    // Position at the time of the event
	Total    int    // Number of words bound to the run
	Word     string // Failed word (EventWordFailed only)
	State    State  // Playback state after the event
}
