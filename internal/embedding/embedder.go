// Package embedding turns text into vectors through a pluggable backend.
package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/metrics"
	"go.uber.org/zap"
)

// Embedder produces vector embeddings for text. Both methods return one vector per
// input, in input order; an empty input yields an empty result without a backend call.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, texts ...string) ([][]float32, error)
	Name() string
	Close() error
}

type options struct {
	logger     *zap.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
}

// Option configures an embedder built by New or NewOllamaEmbedder.
type Option func(*options)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records embedding requests.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHTTPClient overrides the HTTP client used for remote backends.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New builds the embedder selected by cfg.Provider. When cfg.CacheSize is positive the
// backend is wrapped in a CachedEmbedder.
func New(cfg *config.EmbeddingConfig, opts ...Option) (Embedder, error) {
	var (
		backend Embedder
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOllama, "":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		backend, err = NewOllamaEmbedder(cfg.URL, cfg.Model, timeout, opts...)
	case config.ProviderMock:
		backend = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(backend, cfg.CacheSize), nil
	}
	return backend, nil
}
