package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/webrag/internal/docid"
	"github.com/hyperjump/webrag/internal/embedding"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/storage"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store opens scope collections over one persistent backend. It is safe for concurrent use.
type Store struct {
	storage  storage.Storage
	embedder embedding.Embedder
	logger   *zap.Logger

	mu          sync.Mutex
	collections map[string]*Collection
	opening     singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store that persists to st and embeds with embedder.
func NewStore(st storage.Storage, embedder embedding.Embedder, opts ...Option) *Store {
	s := &Store{
		storage:     st,
		embedder:    embedder,
		collections: make(map[string]*Collection),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.LoggerOrNop(s.logger)
	return s
}

// Collection returns the collection for scope, creating it on first use. Concurrent
// callers for the same scope share one open.
func (s *Store) Collection(ctx context.Context, scope string) (*Collection, error) {
	name := docid.CollectionName(scope)
	if c := s.cached(name); c != nil {
		return c, nil
	}
	v, err, _ := s.opening.Do(name, func() (interface{}, error) {
		if c := s.cached(name); c != nil {
			return c, nil
		}
		c, err := s.open(ctx, name)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.collections[name] = c
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Collection), nil
}

func (s *Store) cached(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[name]
}

func (s *Store) open(ctx context.Context, name string) (*Collection, error) {
	id, err := s.storage.EnsureCollection(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", name, err)
	}
	chunks, err := s.storage.LoadChunks(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	c := newCollection(name, id, s.storage, s.embedder, s.logger)
	if err := c.load(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index collection %s: %w", name, err)
	}
	s.logger.Debug("collection opened", zap.String("collection", name), zap.Int("chunks", len(chunks)))
	return c, nil
}

// Collections lists every persisted collection with its chunk count.
func (s *Store) Collections(ctx context.Context) ([]*models.CollectionInfo, error) {
	return s.storage.ListCollections(ctx)
}
