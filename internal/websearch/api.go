package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hyperjump/webrag/pkg/utils"
)

const maxSearchResponseBytes = 4 << 20

// postJSON sends body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, endpoint string, headers map[string]string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, utils.Truncate(strings.TrimSpace(string(data)), 200))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func clientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

// Tavily queries the Tavily search API.
type Tavily struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewTavily returns a Tavily provider; it is configured only when apiKey is set.
func NewTavily(endpoint, apiKey string, client *http.Client) *Tavily {
	return &Tavily{endpoint: endpoint, apiKey: apiKey, client: clientOrDefault(client)}
}

func (t *Tavily) Name() string     { return "tavily" }
func (t *Tavily) Configured() bool { return t.apiKey != "" && t.endpoint != "" }

// Search returns results[].url.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var out struct {
		Results []struct {
			URL string `json:"url"`
		} `json:"results"`
	}
	body := map[string]interface{}{
		"api_key":        t.apiKey,
		"query":          query,
		"max_results":    maxResults,
		"include_answer": false,
	}
	if err := postJSON(ctx, t.client, t.endpoint, nil, body, &out); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(out.Results))
	for _, r := range out.Results {
		urls = append(urls, r.URL)
	}
	return dedupe(urls), nil
}

// Serper queries the Serper Google search API.
type Serper struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewSerper returns a Serper provider; it is configured only when apiKey is set.
func NewSerper(endpoint, apiKey string, client *http.Client) *Serper {
	return &Serper{endpoint: endpoint, apiKey: apiKey, client: clientOrDefault(client)}
}

func (s *Serper) Name() string     { return "serper" }
func (s *Serper) Configured() bool { return s.apiKey != "" && s.endpoint != "" }

// Search returns organic[].link.
func (s *Serper) Search(ctx context.Context, query string, maxResults int) ([]string, error) {
	var out struct {
		Organic []struct {
			Link string `json:"link"`
		} `json:"organic"`
	}
	body := map[string]interface{}{"q": query, "num": maxResults}
	if err := postJSON(ctx, s.client, s.endpoint, map[string]string{"X-API-KEY": s.apiKey}, body, &out); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(out.Organic))
	for _, r := range out.Organic {
		urls = append(urls, r.Link)
	}
	return dedupe(urls), nil
}
