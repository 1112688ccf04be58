package session

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidSpeed = errors.New("invalid speed")
	ErrBusy         = errors.New("session is busy")
	ErrNoText       = errors.New("no text loaded")
	ErrNoSources    = errors.New("content acquisition is not configured")
)
