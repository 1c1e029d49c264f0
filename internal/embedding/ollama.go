package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/hyperjump/webrag/pkg/utils"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

const maxEmbedResponseBytes = 64 << 20

// OllamaEmbedder calls the Ollama /api/embed endpoint, sending every input of a call in a
// single request.
type OllamaEmbedder struct {
	endpoint   string
	model      string
	httpClient *http.Client
	client     *api.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewOllamaEmbedder creates an embedder for the Ollama server at baseURL.
func NewOllamaEmbedder(baseURL, model string, timeout time.Duration, opts ...Option) (*OllamaEmbedder, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid embedding service url %q", baseURL)
	}
	if model == "" {
		return nil, errors.New("embedding model is required")
	}
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &OllamaEmbedder{
		endpoint:   base.String() + "/api/embed",
		model:      model,
		httpClient: httpClient,
		client:     api.NewClient(base, httpClient),
		logger:     utils.LoggerOrNop(o.logger),
		metrics:    o.metrics,
	}, nil
}

// Name returns the backend and model, e.g. "ollama:nomic-embed-text:latest".
func (e *OllamaEmbedder) Name() string {
	return "ollama:" + e.model
}

// EmbedDocuments embeds chunk texts for storage.
func (e *OllamaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts)
}

// EmbedQuery embeds one or more query strings; the result is always a list.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, texts ...string) ([][]float32, error) {
	return e.embed(ctx, texts)
}

func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	defer func() { e.metrics.ObserveEmbed(err) }()

	body, err := json.Marshal(api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("encode embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbedResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("embed request: status %d: %s",
			resp.StatusCode, utils.Truncate(strings.TrimSpace(string(data)), 200))
	}
	vectors, err = parseEmbeddings(data)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed response has %d vectors for %d inputs", len(vectors), len(texts))
	}
	e.logger.Debug("embedded texts",
		zap.Int("count", len(texts)), zap.Duration("took", time.Since(start)))
	return vectors, nil
}

// parseEmbeddings accepts {"embeddings": [[...]]}, {"embedding": [...]} or a bare array.
// A flat list of numbers is a single vector. An empty "embeddings" list defers to "embedding".
func parseEmbeddings(data []byte) ([][]float32, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return decodeVectors(data)
	}
	var payload struct {
		Embeddings json.RawMessage `json:"embeddings"`
		Embedding  json.RawMessage `json:"embedding"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if present(payload.Embeddings) {
		vectors, err := decodeVectors(payload.Embeddings)
		if err != nil || len(vectors) > 0 || !present(payload.Embedding) {
			return vectors, err
		}
	}
	if present(payload.Embedding) {
		return decodeVectors(payload.Embedding)
	}
	return nil, errors.New("decode embed response: no embeddings field")
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeVectors(raw json.RawMessage) ([][]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested, nil
	}
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("decode embed vectors: %w", err)
	}
	return [][]float32{flat}, nil
}

// Ping checks that the Ollama server answers its heartbeat and returns its version.
func (e *OllamaEmbedder) Ping(ctx context.Context) (string, error) {
	if err := e.client.Heartbeat(ctx); err != nil {
		return "", fmt.Errorf("ollama heartbeat: %w", err)
	}
	version, err := e.client.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("ollama version: %w", err)
	}
	return version, nil
}

// Close releases idle connections.
func (e *OllamaEmbedder) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}
