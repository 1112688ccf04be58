package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// ParseWPM parses a words-per-minute value typed by the user. Only whole
// numbers in [1, max] are accepted.
func ParseWPM(text string, max int) (int, error) {
	text = strings.TrimSpace(text)
	wpm, err := strconv.Atoi(text)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidSpeed, "%q is not a number", text)
	}
	if wpm < 1 || wpm > max {
		return 0, errors.Wrapf(ErrInvalidSpeed, "%d is outside 1..%d", wpm, max)
	}
	return wpm, nil
}

// Interval returns the delay between words for wpm, truncated to whole
// milliseconds.
func Interval(wpm int) time.Duration {
	return time.Duration(60000/wpm) * time.Millisecond
}
