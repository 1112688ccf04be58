// Package wordsource provides the Source domain entity that turns raw text
// into an ordered list of words.
package wordsource

import (
	"strings"
	"sync"
)

// Source holds the current reading text and its words.
type Source struct {
	mu    sync.RWMutex
	text  string   // Trimmed input text
	words []string // Whitespace-delimited tokens, in source order
}

// New creates an empty Source.
func New() *Source {
	return &Source{}
}

// SetText replaces the text. Leading and trailing whitespace is dropped and
// the remainder is split on any run of Unicode whitespace.
func (s *Source) SetText(raw string) {
	text := strings.TrimSpace(raw)
	words := strings.Fields(text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.words = words
}

// Text returns the trimmed text.
func (s *Source) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Words returns a copy of the words.
func (s *Source) Words() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, len(s.words))
	copy(result, s.words)
	return result
}

// Len returns the number of words.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.words)
}

// IsEmpty returns true if there are no words.
func (s *Source) IsEmpty() bool {
	return s.Len() == 0
}
