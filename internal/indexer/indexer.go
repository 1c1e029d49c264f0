// Package indexer fetches web pages, splits them into chunks and stores them in a scope's collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/docid"
	"github.com/hyperjump/webrag/internal/extract"
	"github.com/hyperjump/webrag/internal/fetch"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/vector"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

// Fetcher downloads a page. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Page, error)
}

// Indexer ingests URLs into vector collections, one URL at a time.
type Indexer struct {
	store     *vector.Store
	fetcher   Fetcher
	extractor *extract.Extractor
	config    *config.IngestConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for per-URL debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithMetrics records per-URL outcomes.
func WithMetrics(m *metrics.Metrics) IndexerOption {
	return func(idx *Indexer) { idx.metrics = m }
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; a default extractor is used then.
func NewIndexer(
	store *vector.Store,
	fetcher Fetcher,
	extractor *extract.Extractor,
	cfg *config.IngestConfig,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		config:    cfg,
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = utils.LoggerOrNop(idx.logger)
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor(extract.WithLogger(idx.logger))
	}
	return idx
}

// Ingest fetches, extracts, chunks and upserts each URL of req in order. A failure on one
// URL is recorded in the response and the next URL is processed. Only request validation,
// opening the collection, or an embedding backend failure abort the call.
func (idx *Indexer) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	urls := req.URLs
	if limit := idx.config.MaxURLs; limit > 0 && len(urls) > limit {
		idx.logger.Info("ingest request truncated",
			zap.Int("requested", len(urls)), zap.Int("max_urls", limit))
		urls = urls[:limit]
	}

	coll, err := idx.store.Collection(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	chunkChars := req.ChunkChars
	if chunkChars <= 0 {
		chunkChars = idx.config.ChunkChars
	}
	chunker := NewChunker(chunkChars, req.OverlapOr(idx.config.Overlap))
	batchID := uuid.NewString()

	resp := &models.IngestResponse{Scope: req.Scope, Errors: []string{}}
	start := time.Now()
	for _, u := range urls {
		if !req.ForceRefresh && coll.Exists(ctx, u) {
			resp.SkippedURLs++
			idx.metrics.ObserveIngest("skipped", 0)
			idx.logger.Debug("ingest skipped, already stored", zap.String("url", u))
			continue
		}
		n, err := idx.ingestURL(ctx, coll, chunker, u, batchID)
		if err != nil {
			if errors.Is(err, vector.ErrEmbedding) {
				idx.metrics.ObserveIngest("failed", 0)
				return nil, fmt.Errorf("%s: %w", u, err)
			}
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", u, err))
			idx.metrics.ObserveIngest("failed", 0)
			idx.logger.Debug("ingest failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if n > 0 {
			resp.IngestedURLs++
			resp.IngestedChunks += n
		}
		idx.metrics.ObserveIngest("ingested", n)
	}

	idx.logger.Info("ingest finished",
		zap.String("collection", coll.Name()),
		zap.String("batch_id", batchID),
		zap.Int("ingested_urls", resp.IngestedURLs),
		zap.Int("ingested_chunks", resp.IngestedChunks),
		zap.Int("skipped_urls", resp.SkippedURLs),
		zap.Int("errors", len(resp.Errors)),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}

func (idx *Indexer) ingestURL(ctx context.Context, coll *vector.Collection, chunker *Chunker, u, batchID string) (int, error) {
	page, err := idx.fetcher.Fetch(ctx, u)
	if err != nil {
		return 0, err
	}
	text := idx.extractor.ExtractPage(page)
	if utf8.RuneCountInString(text) < idx.config.MinTextChars {
		return 0, fmt.Errorf("Too little extracted text: %s", u)
	}
	pieces := chunker.Chunk(text)
	if len(pieces) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	chunks := make([]*models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &models.Chunk{
			ID:         docid.ChunkID(u, i),
			URL:        u,
			Index:      i,
			Text:       p,
			BatchID:    batchID,
			IngestedAt: now,
		}
	}
	n, err := coll.Upsert(ctx, chunks)
	if err != nil {
		return 0, err
	}
	idx.logger.Debug("ingested url",
		zap.String("url", u), zap.Int("chunks", n), zap.Int("chars", len(text)))
	return n, nil
}
