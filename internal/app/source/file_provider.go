package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

type FileProviderConfig struct {
	BaseDir  string `yaml:"base_dir" mapstructure:"base_dir"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes" default:"10485760" validate:"gte=1"`
}

// FileProvider reads text from local files, addressed by plain path or
// file:// URL. When BaseDir is set, relative paths are resolved against it
// and every path, symlinks included, must stay inside it.
type FileProvider struct {
	config *FileProviderConfig
}

// NewFileProvider creates a new FileProvider.
func NewFileProvider(settings map[string]any) (*FileProvider, error) {
	var config FileProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("file provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("file provider validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &FileProvider{config: &config}, nil
}

// Name returns the provider name.
func (p *FileProvider) Name() string {
	return "file"
}

// Supports accepts file:// URLs and strings without a URL scheme.
func (p *FileProvider) Supports(rawURL string) bool {
	_, ok := p.path(rawURL)
	return ok
}

// Fetch reads the file. Credentials are ignored.
func (p *FileProvider) Fetch(ctx context.Context, req Request) (string, error) {
	path, ok := p.path(req.URL)
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedURL, "not a file path: %s", req.URL)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := p.confine(path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, p.config.MaxBytes+1))
	if err != nil {
		return "", errors.Wrap(err, "failed to read file")
	}
	if int64(len(data)) > p.config.MaxBytes {
		return "", errors.Newf("file %s exceeds %d bytes", path, p.config.MaxBytes)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.Wrapf(ErrEmptyContent, "file %s is empty", path)
	}
	zlog.Info().Msgf("file provider: read %d bytes from %s", len(data), path)
	return text, nil
}

// path resolves rawURL to a filesystem path.
func (p *FileProvider) path(rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	var path string
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil || u.Path == "" {
			return "", false
		}
		path = u.Path
	} else {
		if u, err := url.Parse(rawURL); err == nil && len(u.Scheme) > 1 {
			// Other schemes belong to other providers. Single letters are
			// Windows drive names.
			return "", false
		}
		path = rawURL
	}

	if !filepath.IsAbs(path) && p.config.BaseDir != "" {
		path = filepath.Join(p.config.BaseDir, path)
	}
	return filepath.Clean(path), true
}

// Confined reports whether reads are restricted to BaseDir.
func (p *FileProvider) Confined() bool {
	return p.config.BaseDir != ""
}

// confine checks that path lies inside BaseDir, both lexically and after
// symlinks are resolved. Paths are returned unchanged without a BaseDir.
func (p *FileProvider) confine(path string) (string, error) {
	if !p.Confined() {
		return path, nil
	}

	base, err := filepath.Abs(p.config.BaseDir)
	if err != nil {
		return "", errors.Wrap(err, "invalid base_dir")
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "invalid path")
	}
	if !within(base, path) {
		zlog.Warn().Msgf("file provider: rejected %s outside %s", path, base)
		return "", errors.Wrapf(ErrPathNotAllowed, "%s", path)
	}

	realBase, err := filepath.EvalSymlinks(base)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve base_dir")
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Wrap(err, "failed to open file")
	}
	if !within(realBase, realPath) {
		zlog.Warn().Msgf("file provider: rejected %s, link target %s is outside %s", path, realPath, realBase)
		return "", errors.Wrapf(ErrPathNotAllowed, "%s", path)
	}
	return realPath, nil
}

// within reports whether path is base or a descendant of it. Both must be
// absolute and clean.
func within(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
