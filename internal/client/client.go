// Package client talks to a running WebRAG service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole ask round trip, which includes search and ingestion.
const DefaultTimeout = 90 * time.Second

// StatusError is returned when the service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the WebRAG HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets a logger for request failures.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New returns a client for the service at baseURL. A zero timeout uses DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.LoggerOrNop(c.logger)
	return c
}

// BaseURL returns the service address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Health checks that the service is up.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]string
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// Ingest posts an ingest request.
func (c *Client) Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResponse, error) {
	var out models.IngestResponse
	if err := c.do(ctx, http.MethodPost, "/ingest", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query posts a query request.
func (c *Client) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	var out models.QueryResponse
	if err := c.do(ctx, http.MethodPost, "/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AskFull posts an ask request and returns the whole response.
func (c *Client) AskFull(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	var out models.AskResponse
	if err := c.do(ctx, http.MethodPost, "/ask", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns the ranked candidate URLs the service would ingest for query.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	in := map[string]interface{}{"query": query, "max_results": maxResults}
	var out struct {
		URLs []string `json:"urls"`
	}
	if err := c.do(ctx, http.MethodPost, "/search", in, &out); err != nil {
		return nil, err
	}
	return out.URLs, nil
}

// Collections lists the service's collections.
func (c *Client) Collections(ctx context.Context) (*CollectionsResponse, error) {
	var out CollectionsResponse
	if err := c.do(ctx, http.MethodGet, "/collections", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CollectionsResponse is the body of GET /collections.
type CollectionsResponse struct {
	Collections []*models.CollectionInfo `json:"collections"`
	DiskBytes   *int64                   `json:"disk_bytes,omitempty"`
}

// AskParams are the arguments of the web_rag retrieval call.
type AskParams struct {
	Query            string
	Scope            string
	Search           bool
	K                int
	MaxSearchResults int
	ForceRefresh     bool
}

// DefaultAskParams returns the parameters used when a caller only supplies a query.
func DefaultAskParams(query string) AskParams {
	return AskParams{
		Query:            query,
		Scope:            models.DefaultScope,
		Search:           true,
		K:                models.DefaultK,
		MaxSearchResults: models.DefaultMaxSearchResults,
	}
}

// Ask runs an ask round trip and returns the assembled context. It never fails: transport
// and status errors are returned as an inline "[web_rag error]" message for the caller to read.
func (c *Client) Ask(ctx context.Context, p AskParams) string {
	search := p.Search
	k := p.K
	n := p.MaxSearchResults
	resp, err := c.AskFull(ctx, &models.AskRequest{
		Query:            p.Query,
		Scope:            p.Scope,
		Search:           &search,
		K:                &k,
		MaxSearchResults: &n,
		ForceRefresh:     p.ForceRefresh,
	})
	if err != nil {
		c.logger.Warn("web_rag ask failed", zap.String("url", c.baseURL), zap.Error(err))
		return ErrorText(err)
	}
	return resp.Context
}

// ErrorText renders err the way Ask reports failures inline.
func ErrorText(err error) string {
	return "[web_rag error] Could not reach WebRAG service. " +
		"Make sure docker-compose is running and RAG_SERVICE_URL is correct. Details: " + err.Error()
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(b))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
