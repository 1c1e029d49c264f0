// Package websearch finds candidate URLs for a query through an ordered list of search providers.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrNoProvider is returned when no search provider is configured.
	ErrNoProvider = errors.New("no search provider configured: set TAVILY_API_KEY or SERPER_API_KEY, or enable the DuckDuckGo fallback")
	// ErrExhausted is returned when every configured provider failed.
	ErrExhausted = errors.New("search failed")
)

// Provider is one web search backend.
type Provider interface {
	Name() string
	// Configured reports whether the provider has what it needs (e.g. an API key) to run.
	Configured() bool
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Chain tries providers in order and returns the first non-empty result list.
// Results of different providers are never merged.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets a logger for provider failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

// WithMetrics records one attempt per provider call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) { c.metrics = m }
}

// NewChain returns a chain over providers, tried in the given order.
func NewChain(providers []Provider, opts ...Option) *Chain {
	c := &Chain{providers: providers}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.LoggerOrNop(c.logger)
	return c
}

// NewDefaultChain builds the Tavily, Serper, DuckDuckGo chain from configuration.
func NewDefaultChain(cfg *config.SearchConfig, client *http.Client, userAgent string, opts ...Option) *Chain {
	providers := []Provider{
		NewTavily(cfg.TavilyURL, cfg.TavilyAPIKey, client),
		NewSerper(cfg.SerperURL, cfg.SerperAPIKey, client),
	}
	if cfg.DuckDuckGoOrDefault() {
		providers = append(providers, NewDuckDuckGo(cfg.DuckDuckGoURL, userAgent, client))
	}
	return NewChain(providers, opts...)
}

// Providers returns the names of the configured providers, in order.
func (c *Chain) Providers() []string {
	var names []string
	for _, p := range c.providers {
		if p.Configured() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Search returns up to maxResults URLs from the first configured provider that succeeds with
// a non-empty list. A blank query returns no URLs and contacts no provider.
func (c *Chain) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	var (
		configured int
		lastErr    error
	)
	for _, p := range c.providers {
		if !p.Configured() {
			continue
		}
		configured++
		urls, err := p.Search(ctx, query, maxResults)
		if err != nil {
			c.metrics.ObserveSearch(p.Name(), "error")
			c.logger.Warn("search provider failed", zap.String("provider", p.Name()), zap.Error(err))
			lastErr = fmt.Errorf("%s: %w", p.Name(), err)
			continue
		}
		if len(urls) == 0 {
			c.metrics.ObserveSearch(p.Name(), "empty")
			c.logger.Debug("search provider returned nothing", zap.String("provider", p.Name()))
			continue
		}
		c.metrics.ObserveSearch(p.Name(), "ok")
		if maxResults > 0 && len(urls) > maxResults {
			urls = urls[:maxResults]
		}
		c.logger.Debug("search provider succeeded",
			zap.String("provider", p.Name()), zap.Int("urls", len(urls)))
		return urls, nil
	}
	switch {
	case configured == 0:
		return nil, ErrNoProvider
	case lastErr != nil:
		return nil, fmt.Errorf("%w: %w", ErrExhausted, lastErr)
	}
	return []string{}, nil
}

// dedupe drops empty and repeated URLs, keeping first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
