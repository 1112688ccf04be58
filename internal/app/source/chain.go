package source

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain routes a request to the first provider that supports its URL.
// A failing provider is not retried on the next one.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{
		providers: providers,
	}
}

// Fetch retrieves the text for the request.
func (c *Chain) Fetch(ctx context.Context, req Request) (string, error) {
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return "", errors.Wrap(ErrUnsupportedURL, "url is empty")
	}

	for i, pm := range c.providers {
		if !pm.Provider.Supports(req.URL) {
			continue
		}
		zlog.Info().Msgf("fetching text: provider=%s provider_type=%s index=%d url=%s",
			pm.DisplayName, pm.Provider.Name(), i+1, req.URL)

		text, err := pm.Provider.Fetch(ctx, req)
		if err != nil {
			zlog.Warn().Msgf("provider failed: provider=%s error=%v", pm.DisplayName, err)
			return "", errors.Wrapf(err, "%s", pm.DisplayName)
		}
		if strings.TrimSpace(text) == "" {
			return "", errors.Wrapf(ErrEmptyContent, "%s", pm.DisplayName)
		}

		zlog.Info().Msgf("provider returned text: provider=%s chars=%d", pm.DisplayName, len(text))
		return text, nil
	}

	return "", errors.Wrapf(ErrUnsupportedURL, "%s", req.URL)
}

// Names returns the display names of the registered providers, in order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, pm := range c.providers {
		names = append(names, pm.DisplayName)
	}
	return names
}
