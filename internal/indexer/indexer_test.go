package indexer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/embedding"
	"github.com/hyperjump/webrag/internal/fetch"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/internal/storage"
	"github.com/hyperjump/webrag/internal/vector"
)

var longParagraph = strings.Repeat("Goroutines are lightweight threads managed by the Go runtime. ", 10)

func docServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/guide", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><main><h1>Guide</h1><p>%s</p></main></body></html>", longParagraph)
	})
	mux.HandleFunc("/notes.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, longParagraph)
	})
	mux.HandleFunc("/tiny", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><p>Too short.</p></body></html>")
	})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	idx     *Indexer
	store   *vector.Store
	metrics *metrics.Metrics
}

func newTestIndexer(t *testing.T, emb embedding.Embedder, ingest *config.IngestConfig) testEnv {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "webrag.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	store := vector.NewStore(st, emb)
	m := metrics.New()
	fetcher := fetch.New(&config.FetchConfig{
		HTTPTimeoutSeconds: 5,
		MaxDownloadBytes:   1 << 20,
		UserAgent:          config.DefaultUserAgent,
	})
	if ingest == nil {
		ingest = &config.IngestConfig{ChunkChars: 200, Overlap: 20, MaxURLs: 50, MinTextChars: 200}
	}
	return testEnv{
		idx:     NewIndexer(store, fetcher, nil, ingest, WithMetrics(m)),
		store:   store,
		metrics: m,
	}
}

func ingestCount(t *testing.T, m *metrics.Metrics, outcome string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "webrag_ingest_urls_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestIngest_MixedURLs(t *testing.T) {
	srv := docServer(t)
	env := newTestIndexer(t, embedding.NewMockEmbedder(64), nil)
	ctx := context.Background()

	resp, err := env.idx.Ingest(ctx, &models.IngestRequest{
		URLs: []string{srv.URL + "/guide", "not a url", srv.URL + "/missing", srv.URL + "/tiny"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if resp.Scope != "global" {
		t.Errorf("scope = %q, want global", resp.Scope)
	}
	if resp.IngestedURLs != 1 {
		t.Errorf("ingested_urls = %d, want 1", resp.IngestedURLs)
	}
	if resp.IngestedChunks < 2 {
		t.Errorf("ingested_chunks = %d, want at least 2", resp.IngestedChunks)
	}
	if len(resp.Errors) != 3 {
		t.Fatalf("errors = %q, want 3 entries", resp.Errors)
	}
	if !strings.HasPrefix(resp.Errors[0], "not a url: ") {
		t.Errorf("first error should reference the malformed URL: %q", resp.Errors[0])
	}
	if !strings.Contains(resp.Errors[1], "404") {
		t.Errorf("second error should carry the status: %q", resp.Errors[1])
	}
	want := srv.URL + "/tiny: Too little extracted text: " + srv.URL + "/tiny"
	if resp.Errors[2] != want {
		t.Errorf("third error = %q, want %q", resp.Errors[2], want)
	}
	if got := ingestCount(t, env.metrics, "failed"); got != 3 {
		t.Errorf("failed metric = %v, want 3", got)
	}
	if got := ingestCount(t, env.metrics, "ingested"); got != 1 {
		t.Errorf("ingested metric = %v, want 1", got)
	}

	coll, _ := env.store.Collection(ctx, "global")
	if !coll.Exists(ctx, srv.URL+"/guide") {
		t.Error("guide should be stored")
	}
	if coll.Exists(ctx, srv.URL+"/tiny") {
		t.Error("tiny page must not be stored")
	}
}

func TestIngest_SkipAndForceRefresh(t *testing.T) {
	srv := docServer(t)
	env := newTestIndexer(t, embedding.NewMockEmbedder(64), nil)
	ctx := context.Background()
	req := func(force bool) *models.IngestRequest {
		return &models.IngestRequest{URLs: []string{srv.URL + "/notes.txt"}, Scope: "go", ForceRefresh: force}
	}

	first, err := env.idx.Ingest(ctx, req(false))
	if err != nil {
		t.Fatal(err)
	}
	if first.IngestedURLs != 1 || first.SkippedURLs != 0 {
		t.Fatalf("first ingest: %+v", first)
	}

	second, err := env.idx.Ingest(ctx, req(false))
	if err != nil {
		t.Fatal(err)
	}
	if second.SkippedURLs != 1 || second.IngestedURLs != 0 || second.IngestedChunks != 0 {
		t.Errorf("second ingest should skip: %+v", second)
	}

	third, err := env.idx.Ingest(ctx, req(true))
	if err != nil {
		t.Fatal(err)
	}
	if third.IngestedURLs != 1 || third.IngestedChunks != first.IngestedChunks {
		t.Errorf("forced ingest: %+v", third)
	}
	coll, _ := env.store.Collection(ctx, "go")
	if coll.Count() != first.IngestedChunks {
		t.Errorf("re-ingest must replace chunks by ID: count %d, want %d", coll.Count(), first.IngestedChunks)
	}
}

type lookupFailingStorage struct{ storage.Storage }

func (lookupFailingStorage) HasURL(context.Context, int64, string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestIngest_ExistsErrorReingests(t *testing.T) {
	srv := docServer(t)
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "webrag.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	store := vector.NewStore(lookupFailingStorage{st}, embedding.NewMockEmbedder(32))
	fetcher := fetch.New(&config.FetchConfig{
		HTTPTimeoutSeconds: 5,
		MaxDownloadBytes:   1 << 20,
		UserAgent:          config.DefaultUserAgent,
	})
	idx := NewIndexer(store, fetcher, nil,
		&config.IngestConfig{ChunkChars: 200, Overlap: 20, MaxURLs: 50, MinTextChars: 200})
	req := &models.IngestRequest{URLs: []string{srv.URL + "/notes.txt"}}

	for i := 0; i < 2; i++ {
		resp, err := idx.Ingest(context.Background(), req)
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if resp.IngestedURLs != 1 || resp.SkippedURLs != 0 {
			t.Errorf("ingest %d should not skip when the lookup fails: %+v", i, resp)
		}
	}
}

func TestIngest_RequestChunkSettings(t *testing.T) {
	srv := docServer(t)
	env := newTestIndexer(t, embedding.NewMockEmbedder(64), nil)
	zero := 0

	resp, err := env.idx.Ingest(context.Background(), &models.IngestRequest{
		URLs:       []string{srv.URL + "/notes.txt"},
		ChunkChars: 100,
		Overlap:    &zero,
	})
	if err != nil {
		t.Fatal(err)
	}
	want := len(NewChunker(100, 0).Chunk(longParagraph))
	if resp.IngestedChunks != want {
		t.Errorf("ingested_chunks = %d, want %d", resp.IngestedChunks, want)
	}
}

func TestIngest_NoURLs(t *testing.T) {
	env := newTestIndexer(t, embedding.NewMockEmbedder(8), nil)
	_, err := env.idx.Ingest(context.Background(), &models.IngestRequest{})
	if !errors.Is(err, models.ErrNoURLs) {
		t.Errorf("err = %v, want ErrNoURLs", err)
	}
}

func TestIngest_MaxURLs(t *testing.T) {
	srv := docServer(t)
	env := newTestIndexer(t, embedding.NewMockEmbedder(8),
		&config.IngestConfig{ChunkChars: 200, Overlap: 0, MaxURLs: 1, MinTextChars: 200})

	resp, err := env.idx.Ingest(context.Background(), &models.IngestRequest{
		URLs: []string{srv.URL + "/guide", srv.URL + "/missing"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IngestedURLs != 1 || len(resp.Errors) != 0 {
		t.Errorf("only the first URL should be processed: %+v", resp)
	}
}

type brokenEmbedder struct{ *embedding.MockEmbedder }

func (brokenEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("ollama unreachable")
}

func TestIngest_EmbeddingFailureAborts(t *testing.T) {
	srv := docServer(t)
	env := newTestIndexer(t, brokenEmbedder{embedding.NewMockEmbedder(8)}, nil)

	_, err := env.idx.Ingest(context.Background(), &models.IngestRequest{
		URLs: []string{srv.URL + "/tiny", srv.URL + "/guide", srv.URL + "/notes.txt"},
	})
	if !errors.Is(err, vector.ErrEmbedding) {
		t.Fatalf("err = %v, want ErrEmbedding", err)
	}
	if !strings.Contains(err.Error(), "/guide") {
		t.Errorf("error should name the failing URL: %v", err)
	}
}
