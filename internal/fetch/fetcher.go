// Package fetch downloads web pages under domain, size and time limits.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const maxRedirects = 10

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrDomainNotAllowed is returned when the host is outside the allow-list.
	ErrDomainNotAllowed = errors.New("domain not allowed")
	// ErrTooLarge is returned as soon as a download exceeds the byte cap.
	ErrTooLarge = errors.New("downloaded content too large")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Page is a downloaded document.
type Page struct {
	URL         string // final URL after redirects
	Body        []byte
	ContentType string // media type without parameters, lowercased
	Charset     string // declared charset, empty when absent
	Text        string // Body decoded to UTF-8
}

// Fetcher retrieves pages. It is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	allowed   []string
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithMetrics records fetch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithHTTPClient replaces the HTTP client. Its redirect policy is overridden
// so the allow-list also applies to every redirect hop.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		cp := *c
		f.client = &cp
	}
}

// New creates a Fetcher from cfg.
func New(cfg *config.FetchConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: cfg.HTTPTimeout()},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxDownloadBytes,
	}
	for _, d := range cfg.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			f.allowed = append(f.allowed, d)
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = utils.LoggerOrNop(f.logger)
	f.client.CheckRedirect = f.checkRedirect
	return f
}

// Allowed reports whether rawURL's host passes the allow-list. An empty list allows every host;
// otherwise the host must equal an entry or be a subdomain of one.
func (f *Fetcher) Allowed(rawURL string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	return f.hostAllowed(u.Hostname())
}

func (f *Fetcher) hostAllowed(host string) bool {
	if len(f.allowed) == 0 {
		return true
	}
	host = strings.ToLower(host)
	for _, d := range f.allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if !f.hostAllowed(req.URL.Hostname()) {
		return fmt.Errorf("%w: redirect to %s", ErrDomainNotAllowed, req.URL)
	}
	return nil
}

func parseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidURL, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// Fetch downloads rawURL. The body is read incrementally and the download aborts with
// ErrTooLarge once more than the configured cap has been received.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		f.metrics.ObserveFetch("invalid", 0)
		return nil, err
	}
	if !f.hostAllowed(u.Hostname()) {
		f.metrics.ObserveFetch("denied", 0)
		return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	f.logger.Debug("fetching", zap.String("url", u.String()))
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrDomainNotAllowed) {
			f.metrics.ObserveFetch("denied", 0)
			return nil, fmt.Errorf("%w: %s", ErrDomainNotAllowed, rawURL)
		}
		f.metrics.ObserveFetch("error", 0)
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.metrics.ObserveFetch("status", 0)
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > f.maxBytes {
		f.metrics.ObserveFetch("too_large", 0)
		return nil, f.tooLarge(rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		f.metrics.ObserveFetch("error", 0)
		return nil, fmt.Errorf("read body %s: %w", rawURL, err)
	}
	if int64(len(body)) > f.maxBytes {
		f.metrics.ObserveFetch("too_large", 0)
		return nil, f.tooLarge(rawURL)
	}

	mediaType, cs := parseContentType(resp.Header.Get("Content-Type"))
	page := &Page{
		URL:         resp.Request.URL.String(),
		Body:        body,
		ContentType: mediaType,
		Charset:     cs,
		Text:        Decode(body, cs),
	}
	f.metrics.ObserveFetch("ok", len(body))
	f.logger.Debug("fetched",
		zap.String("url", page.URL),
		zap.String("content_type", mediaType),
		zap.Int("bytes", len(body)),
	)
	return page, nil
}

func (f *Fetcher) tooLarge(rawURL string) error {
	return fmt.Errorf("%w (> %d bytes): %s", ErrTooLarge, f.maxBytes, rawURL)
}

func parseContentType(header string) (mediaType, cs string) {
	if header == "" {
		return "", ""
	}
	mt, params, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0])), ""
	}
	return strings.ToLower(mt), strings.ToLower(params["charset"])
}

// Decode converts body from the declared charset to UTF-8. An empty or unknown charset,
// or a decoding failure, falls back to UTF-8 with invalid bytes replaced by U+FFFD.
func Decode(body []byte, declared string) string {
	if declared != "" {
		if enc, name := charset.Lookup(declared); enc != nil && name != "utf-8" {
			if out, err := enc.NewDecoder().Bytes(body); err == nil {
				return string(out)
			}
		}
	}
	return strings.ToValidUTF8(string(body), "\uFFFD")
}
