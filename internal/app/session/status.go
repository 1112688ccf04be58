package session

import (
	"time"

	"github.com/osa030/flashread/internal/app/playback"
	"github.com/osa030/flashread/internal/app/session/state"
)

// Status represents the current session status.
type Status struct {
	State    playback.State
	Activity state.Activity
	Position int
	Total    int
	WPM      int
	Interval time.Duration
	Word     string // Last displayed word
	Message  string // Status line for the user
	Event    string // Most recent session or playback event
	Origin   string // URL or path the text was fetched from
}

// Busy reports whether the shell should keep its inputs disabled.
func (s Status) Busy() bool {
	return s.Activity == state.ActivityFetching
}
