package models

import (
	"errors"
	"strings"
)

// DefaultScope is used when a request omits its scope.
const DefaultScope = "global"

var (
	// ErrEmptyQuery is returned when a query is empty or whitespace only.
	ErrEmptyQuery = errors.New("empty query")
	// ErrNoURLs is returned when an ingest request lists no URLs.
	ErrNoURLs = errors.New("no URLs provided")
)

// IngestRequest asks the service to fetch, chunk and index a list of URLs.
type IngestRequest struct {
	URLs         []string `json:"urls"`
	Scope        string   `json:"scope,omitempty"`
	ForceRefresh bool     `json:"force_refresh,omitempty"`
	ChunkChars   int      `json:"chunk_chars,omitempty"`
	Overlap      *int     `json:"overlap,omitempty"`
}

// Validate sets the default scope and rejects an empty URL list.
func (r *IngestRequest) Validate() error {
	if r.Scope == "" {
		r.Scope = DefaultScope
	}
	if len(r.URLs) == 0 {
		return ErrNoURLs
	}
	return nil
}

// OverlapOr returns the requested overlap, or def when the request left it unset.
func (r *IngestRequest) OverlapOr(def int) int {
	if r.Overlap != nil {
		return *r.Overlap
	}
	return def
}

// IngestResponse summarizes an ingestion run. Errors holds one entry per failed URL.
type IngestResponse struct {
	Scope          string   `json:"scope"`
	IngestedURLs   int      `json:"ingested_urls"`
	IngestedChunks int      `json:"ingested_chunks"`
	SkippedURLs    int      `json:"skipped_urls"`
	Errors         []string `json:"errors"`
}

// QueryRequest retrieves context from an existing collection.
type QueryRequest struct {
	Query string `json:"query"`
	Scope string `json:"scope,omitempty"`
	K     *int   `json:"k,omitempty"`
}

// DefaultK is the number of chunks retrieved when a request leaves k unset.
const DefaultK = 6

// Validate trims the query, sets the default scope, and rejects a blank query.
func (r *QueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Scope == "" {
		r.Scope = DefaultScope
	}
	if r.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}

// QueryResponse carries the assembled context and the URLs it cites.
type QueryResponse struct {
	Scope   string   `json:"scope"`
	Context string   `json:"context"`
	Sources []string `json:"sources"`
}

// AskRequest runs search, ingestion and query in one call.
type AskRequest struct {
	Query            string `json:"query"`
	Scope            string `json:"scope,omitempty"`
	Search           *bool  `json:"search,omitempty"`
	MaxSearchResults *int   `json:"max_search_results,omitempty"`
	MaxURLsToIngest  *int   `json:"max_urls_to_ingest,omitempty"`
	ForceRefresh     bool   `json:"force_refresh,omitempty"`
	K                *int   `json:"k,omitempty"`
}

// Ask defaults.
const (
	DefaultMaxSearchResults = 5
	DefaultMaxURLsToIngest  = 5
)

// Validate trims the query, sets the default scope, and rejects a blank query.
func (r *AskRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Scope == "" {
		r.Scope = DefaultScope
	}
	if r.Query == "" {
		return ErrEmptyQuery
	}
	return nil
}

// SearchEnabled reports whether web search should run; defaults to true.
func (r *AskRequest) SearchEnabled() bool {
	return r.Search == nil || *r.Search
}

// SearchResults returns the requested search result count or its default.
func (r *AskRequest) SearchResults() int {
	if r.MaxSearchResults == nil {
		return DefaultMaxSearchResults
	}
	return *r.MaxSearchResults
}

// URLsToIngest returns the requested ingestion cap or its default.
func (r *AskRequest) URLsToIngest() int {
	if r.MaxURLsToIngest == nil {
		return DefaultMaxURLsToIngest
	}
	return *r.MaxURLsToIngest
}

// AskResponse is QueryResponse plus ingestion counters.
type AskResponse struct {
	Scope          string   `json:"scope"`
	Context        string   `json:"context"`
	Sources        []string `json:"sources"`
	IngestedURLs   int      `json:"ingested_urls"`
	IngestedChunks int      `json:"ingested_chunks"`
}
