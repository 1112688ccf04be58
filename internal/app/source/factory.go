package source

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/flashread/internal/infra/config"
)

type chainOptions struct {
	confinedFiles bool
}

// ChainOption customizes NewChainFromConfig.
type ChainOption func(*chainOptions)

// RequireConfinedFiles skips file providers that have no base_dir. Used when
// fetch requests come from remote callers.
func RequireConfinedFiles() ChainOption {
	return func(o *chainOptions) {
		o.confinedFiles = true
	}
}

// NewChainFromConfig creates a provider chain from configuration.
func NewChainFromConfig(cfg *config.Config, opts ...ChainOption) (*Chain, error) {
	if len(cfg.Source.Providers) == 0 {
		return nil, errors.New("no source providers configured")
	}

	var options chainOptions
	for _, opt := range opts {
		opt(&options)
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Source.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating source provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "file":
			var fp *FileProvider
			fp, err = NewFileProvider(pcfg.Settings)
			if err == nil && options.confinedFiles && !fp.Confined() {
				zlog.Warn().Msgf("skipping source provider without base_dir: index=%d display_name=%s", i+1, pcfg.DisplayName)
				continue
			}
			provider = fp

		case "web":
			provider, err = NewWebProvider(pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered source provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}
