// Package search answers retrieval queries over scope collections and drives the
// search, ingest and query flow behind ask.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/vector"
	"github.com/hyperjump/webrag/internal/websearch"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

// Bounds applied to ask parameters.
const (
	MaxSearchResults = 10
	MaxURLsToIngest  = 10
)

// WebSearcher finds candidate URLs. *websearch.Chain implements it.
type WebSearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]string, error)
}

// Ingester stores pages in a collection. *indexer.Indexer implements it.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error)
}

// Engine runs query and ask requests.
type Engine struct {
	store    *vector.Store
	ingester Ingester
	searcher WebSearcher
	config   *config.RetrievalConfig
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for request summaries.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine with the given dependencies.
func NewEngine(
	store *vector.Store,
	ingester Ingester,
	searcher WebSearcher,
	cfg *config.RetrievalConfig,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		store:    store,
		ingester: ingester,
		searcher: searcher,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.LoggerOrNop(e.logger)
	return e
}

func (e *Engine) clampK(k *int) int {
	maxK := e.config.MaxK
	if maxK <= 0 {
		maxK = 20
	}
	if k == nil {
		def := e.config.DefaultK
		if def <= 0 {
			def = models.DefaultK
		}
		return utils.ClampInt(def, 1, maxK)
	}
	return utils.ClampInt(*k, 1, maxK)
}

// Query retrieves the k nearest chunks of the scope and assembles them into a context.
// A scope that was never ingested yields a header-only context and no sources.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	k := e.clampK(req.K)
	coll, err := e.store.Collection(ctx, req.Scope)
	if err != nil {
		return nil, err
	}
	results, err := coll.Query(ctx, req.Query, k)
	if err != nil {
		return nil, err
	}
	text, sources := AssembleContext(results, e.config.MaxContextChars)
	e.logger.Debug("query served",
		zap.String("collection", coll.Name()),
		zap.Int("k", k),
		zap.Int("results", len(results)),
		zap.Int("sources", len(sources)),
		zap.Duration("took", time.Since(start)))
	return &models.QueryResponse{Scope: req.Scope, Context: text, Sources: sources}, nil
}

// Ask optionally searches the web for the query, ingests the best-ranked URLs into the
// scope, then answers the query from the scope. A failed search or ingest falls back to
// the stored content. A missing search provider and embedding backend failures are returned.
func (e *Engine) Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resp := &models.AskResponse{Scope: req.Scope}

	if req.SearchEnabled() {
		if err := e.searchAndIngest(ctx, req, resp); err != nil {
			return nil, err
		}
	}

	qr, err := e.Query(ctx, &models.QueryRequest{Query: req.Query, Scope: req.Scope, K: req.K})
	if err != nil {
		return nil, err
	}
	resp.Context = qr.Context
	resp.Sources = qr.Sources
	return resp, nil
}

func (e *Engine) searchAndIngest(ctx context.Context, req *models.AskRequest, resp *models.AskResponse) error {
	urls, err := e.search(ctx, req.Query, utils.ClampInt(req.SearchResults(), 1, MaxSearchResults))
	if err != nil {
		if errors.Is(err, websearch.ErrNoProvider) {
			return err
		}
		e.logger.Warn("ask search failed, answering from stored content",
			zap.String("scope", req.Scope), zap.Error(err))
		return nil
	}
	urls = RankURLs(urls)
	if limit := utils.ClampInt(req.URLsToIngest(), 0, MaxURLsToIngest); len(urls) > limit {
		urls = urls[:limit]
	}
	if len(urls) == 0 {
		return nil
	}
	ir, err := e.ingester.Ingest(ctx, &models.IngestRequest{
		URLs:         urls,
		Scope:        req.Scope,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		if errors.Is(err, vector.ErrEmbedding) {
			return fmt.Errorf("ingest search results: %w", err)
		}
		e.logger.Warn("ask ingest failed, answering from stored content",
			zap.String("scope", req.Scope), zap.Error(err))
		return nil
	}
	resp.IngestedURLs = ir.IngestedURLs
	resp.IngestedChunks = ir.IngestedChunks
	e.logger.Debug("ask ingested search results",
		zap.Strings("urls", urls),
		zap.Int("ingested_urls", ir.IngestedURLs),
		zap.Int("skipped_urls", ir.SkippedURLs),
		zap.Strings("errors", ir.Errors))
	return nil
}

// SearchURLs runs the web search chain and returns the candidate URLs in ingest order.
func (e *Engine) SearchURLs(ctx context.Context, query string, maxResults int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.ErrEmptyQuery
	}
	if e.searcher == nil {
		return nil, websearch.ErrNoProvider
	}
	urls, err := e.searcher.Search(ctx, query, utils.ClampInt(maxResults, 1, MaxSearchResults))
	if err != nil {
		return nil, err
	}
	return RankURLs(urls), nil
}

func (e *Engine) search(ctx context.Context, query string, n int) ([]string, error) {
	if e.searcher == nil {
		return nil, nil
	}
	return e.searcher.Search(ctx, query, n)
}
