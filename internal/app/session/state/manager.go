package state

import (
	"sync"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Reading speed
	wpm int

	// Shell feedback
	activity  Activity
	message   string
	lastEvent string
	lastWord  string

	// Where the current text came from; empty for typed text
	origin string
}

// New creates a new state manager.
func New(wpm int, message string) *Manager {
	return &Manager{
		wpm:      wpm,
		activity: ActivityIdle,
		message:  message,
	}
}

// GetWPM returns the configured words per minute.
func (m *Manager) GetWPM() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.wpm
}

// SetWPM sets the words per minute.
func (m *Manager) SetWPM(wpm int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wpm = wpm
}

// GetActivity returns the current activity.
func (m *Manager) GetActivity() Activity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activity
}

// BeginFetch switches to ActivityFetching. It returns false if a fetch is
// already in progress.
func (m *Manager) BeginFetch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activity == ActivityFetching {
		return false
	}
	m.activity = ActivityFetching
	return true
}

// EndFetch switches back to ActivityIdle.
func (m *Manager) EndFetch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = ActivityIdle
}

// GetMessage returns the status line shown to the user.
func (m *Manager) GetMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.message
}

// SetMessage sets the status line.
func (m *Manager) SetMessage(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.message = message
}

// GetLastEvent returns the name of the most recent session event.
func (m *Manager) GetLastEvent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastEvent
}

// SetLastEvent records the most recent session event.
func (m *Manager) SetLastEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastEvent = event
}

// GetLastWord returns the most recently displayed word.
func (m *Manager) GetLastWord() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastWord
}

// SetLastWord records the most recently displayed word.
func (m *Manager) SetLastWord(word string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastWord = word
}

// GetOrigin returns where the current text came from.
func (m *Manager) GetOrigin() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.origin
}

// SetOrigin records where the current text came from.
func (m *Manager) SetOrigin(origin string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.origin = origin
}
