// Package playback provides paced word playback on a background goroutine.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No run active (never started, stopped, or completed)
	StateRunning              // A run is emitting words
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}
