// Package state provides the reading session's shell-facing state.
package state

// Activity represents what the session is doing besides playback.
type Activity int

const (
	ActivityIdle     Activity = iota // Inputs enabled
	ActivityFetching                 // Content acquisition in progress, inputs disabled
)

// String returns the string representation of the activity.
func (a Activity) String() string {
	switch a {
	case ActivityIdle:
		return "idle"
	case ActivityFetching:
		return "fetching"
	default:
		return "unknown"
	}
}
