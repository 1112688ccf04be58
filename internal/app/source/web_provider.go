package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/flashread/internal/infra/web"
)

type WebProviderConfig struct {
	LoginURL        string   `yaml:"login_url" mapstructure:"login_url" validate:"omitempty,url"`
	UsernameField   string   `yaml:"username_field" mapstructure:"username_field" default:"email"`
	PasswordField   string   `yaml:"password_field" mapstructure:"password_field" default:"password"`
	ContentSelector string   `yaml:"content_selector" mapstructure:"content_selector" default:"body"`
	NextSelector    string   `yaml:"next_selector" mapstructure:"next_selector"`
	MaxPages        int      `yaml:"max_pages" mapstructure:"max_pages" default:"50" validate:"gte=1,lte=1000"`
	PageSeparator   string   `yaml:"page_separator" mapstructure:"page_separator" default:"\n\n"`
	RetryCount      int      `yaml:"retry_count" mapstructure:"retry_count" default:"2" validate:"gte=0,lte=10"`
	TimeoutSec      int      `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"30" validate:"gte=1,lte=600"`
	UserAgent       string   `yaml:"user_agent" mapstructure:"user_agent"`
	Hosts           []string `yaml:"hosts" mapstructure:"hosts"`
}

// WebProvider fetches text from http(s) pages, logging in first when a
// login URL is configured.
type WebProvider struct {
	config *WebProviderConfig
}

// NewWebProvider creates a new WebProvider.
func NewWebProvider(settings map[string]any) (*WebProvider, error) {
	var config WebProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("web provider config: login_url=%s content_selector=%q next_selector=%q max_pages=%d",
		config.LoginURL, config.ContentSelector, config.NextSelector, config.MaxPages)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("web provider validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &WebProvider{config: &config}, nil
}

// Name returns the provider name.
func (p *WebProvider) Name() string {
	return "web"
}

// Supports accepts http and https URLs, restricted to Hosts when set.
func (p *WebProvider) Supports(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if len(p.config.Hosts) == 0 {
		return true
	}
	for _, h := range p.config.Hosts {
		if strings.EqualFold(h, u.Hostname()) {
			return true
		}
	}
	return false
}

// Fetch logs in when configured and collects the page text. Each call uses a
// fresh cookie jar.
func (p *WebProvider) Fetch(ctx context.Context, req Request) (string, error) {
	client, err := web.New(web.Config{
		UserAgent:       p.config.UserAgent,
		Timeout:         time.Duration(p.config.TimeoutSec) * time.Second,
		RetryCount:      p.config.RetryCount,
		LoginURL:        p.config.LoginURL,
		UsernameField:   p.config.UsernameField,
		PasswordField:   p.config.PasswordField,
		ContentSelector: p.config.ContentSelector,
		NextSelector:    p.config.NextSelector,
		MaxPages:        p.config.MaxPages,
		PageSeparator:   p.config.PageSeparator,
	})
	if err != nil {
		return "", err
	}

	if client.HasLogin() {
		if err := client.Login(ctx, req.Email, req.Password); err != nil {
			return "", err
		}
	}

	text, err := client.FetchText(ctx, strings.TrimSpace(req.URL))
	if err != nil {
		if errors.Is(err, web.ErrEmptyContent) {
			return "", errors.Mark(err, ErrEmptyContent)
		}
		return "", err
	}
	return text, nil
}
