// Package source provides content acquisition: providers that turn a URL
// (plus optional credentials) into a block of reading text.
package source

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnsupportedURL = errors.New("no provider supports this url")
	ErrEmptyContent   = errors.New("source returned no text")
	ErrPathNotAllowed = errors.New("path is outside the base directory")
)

// Request describes one acquisition.
type Request struct {
	Email    string
	Password string
	URL      string
}

// Provider is the interface for content providers.
type Provider interface {
	// Name returns the provider type (used in config).
	Name() string
	// Supports reports whether the provider can handle the URL.
	Supports(rawURL string) bool
	// Fetch retrieves the text for the request.
	Fetch(ctx context.Context, req Request) (string, error)
}
