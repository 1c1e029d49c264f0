package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/embedding"
	"github.com/hyperjump/webrag/internal/extract"
	"github.com/hyperjump/webrag/internal/fetch"
	"github.com/hyperjump/webrag/internal/indexer"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/internal/search"
	"github.com/hyperjump/webrag/internal/server"
	"github.com/hyperjump/webrag/internal/storage"
	"github.com/hyperjump/webrag/internal/vector"
	"github.com/hyperjump/webrag/internal/websearch"
	"github.com/hyperjump/webrag/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(opts)
		},
	}
}

func runServe(opts *rootOptions) error {
	cfg, resolvedConfigPath, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || opts.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("vector_store_dir", cfg.Storage.VectorStoreDir),
		zap.Strings("allowed_domains", cfg.Fetch.AllowedDomains),
	)

	m := metrics.New()
	components, err := initializeComponents(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer components.Close()

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	checkEmbedder(pingCtx, components.Embedder, logger)
	pingCancel()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Store,
		cfg,
		logger,
		server.WithMetrics(m),
	)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// pinger is implemented by backends that can report their reachability.
type pinger interface {
	Ping(ctx context.Context) (string, error)
}

// checkEmbedder logs whether the embedding backend answers. An unreachable backend is
// not fatal: ingest and query report the failure per request.
func checkEmbedder(ctx context.Context, emb embedding.Embedder, logger *zap.Logger) {
	if c, ok := emb.(*embedding.CachedEmbedder); ok {
		emb = c.Unwrap()
	}
	p, ok := emb.(pinger)
	if !ok {
		logger.Info("embedding backend ready", zap.String("embedder", emb.Name()))
		return
	}
	v, err := p.Ping(ctx)
	if err != nil {
		logger.Warn("embedding backend unreachable", zap.String("embedder", emb.Name()), zap.Error(err))
		return
	}
	logger.Info("embedding backend ready", zap.String("embedder", emb.Name()), zap.String("version", v))
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Store    *vector.Store
	Search   *websearch.Chain
	Indexer  *indexer.Indexer
	Engine   *search.Engine
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*Components, error) {
	if err := os.MkdirAll(cfg.Storage.VectorStoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store dir: %w", err)
	}
	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedding.New(&cfg.Embedding, embedding.WithLogger(logger), embedding.WithMetrics(m))
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	store := vector.NewStore(st, emb, vector.WithLogger(logger))
	fetcher := fetch.New(&cfg.Fetch, fetch.WithLogger(logger), fetch.WithMetrics(m))
	extractor := extract.NewExtractor(extract.WithLogger(logger))
	idx := indexer.NewIndexer(store, fetcher, extractor, &cfg.Ingest,
		indexer.WithLogger(logger), indexer.WithMetrics(m))

	searchClient := &http.Client{Timeout: cfg.Fetch.HTTPTimeout()}
	chain := websearch.NewDefaultChain(&cfg.Search, searchClient, cfg.Fetch.UserAgent,
		websearch.WithLogger(logger), websearch.WithMetrics(m))
	logger.Info("search providers", zap.Strings("configured", chain.Providers()))

	engine := search.NewEngine(store, idx, chain, &cfg.Retrieval, search.WithLogger(logger))

	return &Components{
		Storage:  st,
		Embedder: emb,
		Store:    store,
		Search:   chain,
		Indexer:  idx,
		Engine:   engine,
	}, nil
}
