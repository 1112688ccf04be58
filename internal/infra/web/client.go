// Package web provides a generic HTML text fetcher with optional form login
// and next-link pagination.
package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	zlog "github.com/rs/zerolog/log"
)

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrEmptyContent = errors.New("no text found")
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Config represents web client configuration.
type Config struct {
	UserAgent  string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration

	// Form login (optional)
	LoginURL      string
	UsernameField string
	PasswordField string

	// Extraction
	ContentSelector string // CSS selector whose text is collected on every page
	NextSelector    string // CSS selector of the anchor leading to the next page; empty disables paging
	MaxPages        int
	PageSeparator   string
}

// Client fetches page text over HTTP, keeping cookies between requests.
type Client struct {
	http   *resty.Client
	config Config
}

// New creates a new web client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.UsernameField == "" {
		cfg.UsernameField = "email"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}
	if cfg.ContentSelector == "" {
		cfg.ContentSelector = "body"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.PageSeparator == "" {
		cfg.PageSeparator = "\n\n"
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", cfg.UserAgent)
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.RetryCount)
	client.SetRetryWaitTime(cfg.RetryWait)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res != nil && res.StatusCode() >= http.StatusInternalServerError
	})

	return &Client{
		http:   client,
		config: cfg,
	}, nil
}

// HasLogin reports whether a login URL is configured.
func (c *Client) HasLogin() bool {
	return c.config.LoginURL != ""
}

// Login submits the login form found at the configured login URL.
// Hidden inputs of the form (CSRF tokens and the like) are sent back as-is.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if !c.HasLogin() {
		return nil
	}
	if username == "" || password == "" {
		return errors.Wrap(ErrLoginFailed, "username and password are required")
	}

	doc, pageURL, err := c.getDocument(ctx, c.config.LoginURL)
	if err != nil {
		return errors.Wrap(err, "failed to load login page")
	}

	form := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("input[name='"+c.config.PasswordField+"']").Length() > 0
	}).First()

	formData := map[string]string{}
	action := pageURL
	if form.Length() > 0 {
		form.Find("input[type='hidden']").Each(func(_ int, s *goquery.Selection) {
			if name, ok := s.Attr("name"); ok && name != "" {
				formData[name] = s.AttrOr("value", "")
			}
		})
		if href, ok := form.Attr("action"); ok && href != "" {
			if resolved, err := pageURL.Parse(href); err == nil {
				action = resolved
			}
		}
	} else {
		zlog.Warn().Msgf("web: no login form with field %q found, posting to %s", c.config.PasswordField, pageURL)
	}
	formData[c.config.UsernameField] = username
	formData[c.config.PasswordField] = password

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(formData).
		Post(action.String())
	if err != nil {
		return errors.Wrap(err, "failed to submit login form")
	}
	if res.IsError() {
		return errors.Wrapf(ErrLoginFailed, "login returned status %d", res.StatusCode())
	}

	after, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return errors.Wrap(err, "failed to parse login response")
	}
	if after.Find("input[name='"+c.config.PasswordField+"']").Length() > 0 {
		return errors.Wrap(ErrLoginFailed, "login form shown again")
	}

	zlog.Info().Msgf("web: logged in: url=%s", action)
	return nil
}

// FetchText collects the text of the content selector from rawURL and, when a
// next selector is configured, from the pages it links to, up to MaxPages.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	visited := make(map[string]bool)
	var pages []string

	next := rawURL
	for page := 1; next != "" && page <= c.config.MaxPages; page++ {
		if visited[next] {
			zlog.Debug().Msgf("web: next link loops back to %s, stopping", next)
			break
		}
		visited[next] = true

		doc, pageURL, err := c.getDocument(ctx, next)
		if err != nil {
			return "", errors.Wrapf(err, "failed to fetch page %d", page)
		}

		text := ExtractText(doc.Find(c.config.ContentSelector))
		if text == "" {
			zlog.Warn().Msgf("web: no text on page %d: url=%s selector=%q", page, pageURL, c.config.ContentSelector)
		} else {
			pages = append(pages, text)
		}
		zlog.Debug().Msgf("web: fetched page %d: url=%s chars=%d", page, pageURL, len(text))

		next = ""
		if c.config.NextSelector != "" {
			if href, ok := doc.Find(c.config.NextSelector).First().Attr("href"); ok && href != "" {
				if resolved, err := pageURL.Parse(href); err == nil {
					next = resolved.String()
				}
			}
		}
	}

	if len(pages) == 0 {
		return "", errors.Wrapf(ErrEmptyContent, "selector %q matched no text at %s", c.config.ContentSelector, rawURL)
	}

	return strings.Join(pages, c.config.PageSeparator), nil
}

// getDocument fetches and parses a page, returning the final URL after redirects.
func (c *Client) getDocument(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, nil, err
	}
	if res.IsError() {
		return nil, nil, errors.Newf("unexpected status %d from %s", res.StatusCode(), rawURL)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid url")
	}
	if res.RawResponse != nil && res.RawResponse.Request != nil && res.RawResponse.Request.URL != nil {
		pageURL = res.RawResponse.Request.URL
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse html")
	}
	return doc, pageURL, nil
}

// ExtractText returns the visible text of the selection with whitespace
// collapsed to single spaces. Matches are joined by a blank line.
func ExtractText(sel *goquery.Selection) string {
	var blocks []string
	sel.Each(func(_ int, s *goquery.Selection) {
		s = s.Clone()
		s.Find("script, style, noscript, template").Remove()
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n\n")
}
