package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/webrag/internal/embedding"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/storage"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

// ErrEmbedding wraps embedding backend failures raised while upserting or querying.
var ErrEmbedding = errors.New("embedding failed")

// Collection is one scope's chunks: persisted rows plus an in-memory index over their vectors.
type Collection struct {
	name     string
	id       int64
	storage  storage.Storage
	embedder embedding.Embedder
	logger   *zap.Logger

	mu    sync.RWMutex // guards index updates together with texts
	index VectorIndex
	texts map[string]chunkText
}

type chunkText struct {
	url  string
	text string
}

func newCollection(name string, id int64, st storage.Storage, embedder embedding.Embedder, logger *zap.Logger) *Collection {
	index, _ := NewMemoryIndex(0)
	return &Collection{
		name:     name,
		id:       id,
		storage:  st,
		embedder: embedder,
		logger:   logger,
		index:    index,
		texts:    make(map[string]chunkText),
	}
}

// Name returns the normalized collection name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) load(ctx context.Context, chunks []*models.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(ctx, chunks)
}

func (c *Collection) addLocked(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		vectors[i] = ch.Embedding
	}
	if err := c.index.Add(ctx, ids, vectors); err != nil {
		return err
	}
	for _, ch := range chunks {
		c.texts[ch.ID] = chunkText{url: ch.URL, text: ch.Text}
	}
	return nil
}

// Exists reports whether any chunk of url is stored. Lookup errors are logged and reported as false.
func (c *Collection) Exists(ctx context.Context, url string) bool {
	ok, err := c.storage.HasURL(ctx, c.id, url)
	if err != nil {
		c.logger.Warn("exists lookup failed",
			zap.String("collection", c.name), zap.String("url", url), zap.Error(err))
		return false
	}
	return ok
}

// Upsert embeds the chunks, persists them in one transaction and updates the index.
// Chunks with an existing ID are replaced. Nothing is written when embedding fails.
func (c *Collection) Upsert(ctx context.Context, chunks []*models.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w: %w", ErrEmbedding, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: %w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}
	for i, ch := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		utils.NormalizeL2(vec)
		ch.Embedding = vec
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	want := c.dimensions()
	if want == 0 {
		want = len(chunks[0].Embedding)
	}
	for _, ch := range chunks {
		if len(ch.Embedding) != want {
			return 0, fmt.Errorf("embedding dimension %d does not match collection dimension %d", len(ch.Embedding), want)
		}
	}
	if err := c.storage.UpsertChunks(ctx, c.id, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	if err := c.addLocked(ctx, chunks); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(chunks), nil
}

func (c *Collection) dimensions() int {
	if m, ok := c.index.(*MemoryIndex); ok {
		return m.Dimensions()
	}
	return 0
}

// Query embeds text and returns up to k results ordered by increasing cosine distance.
// An empty collection returns no results without calling the embedder.
func (c *Collection) Query(ctx context.Context, text string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 || c.index.Size() == 0 {
		return []models.RetrievalResult{}, nil
	}
	vectors, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", ErrEmbedding, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: %w: got %d vectors for 1 query", ErrEmbedding, len(vectors))
	}
	query := make([]float32, len(vectors[0]))
	copy(query, vectors[0])
	utils.NormalizeL2(query)

	c.mu.RLock()
	defer c.mu.RUnlock()
	hits, err := c.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.name, err)
	}
	results := make([]models.RetrievalResult, 0, len(hits))
	for _, h := range hits {
		t, ok := c.texts[h.ID]
		if !ok {
			continue
		}
		results = append(results, models.RetrievalResult{URL: t.url, Text: t.text, Distance: h.Distance})
	}
	return results, nil
}

// Count returns the number of chunks in the collection.
func (c *Collection) Count() int {
	return c.index.Size()
}
