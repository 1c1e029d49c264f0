package config

import "path/filepath"

// Embedding providers.
const (
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// DefaultUserAgent identifies outbound fetches when no user agent is configured.
const DefaultUserAgent = "WebRAG/0.1 (+https://example.local; contact=dev@local)"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8001
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 300
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/data"
	}
	if cfg.Storage.VectorStoreDir == "" {
		cfg.Storage.VectorStoreDir = filepath.Join(cfg.Storage.DataDir, "vectors")
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOllama
	}
	if cfg.Embedding.URL == "" {
		cfg.Embedding.URL = "http://ollama:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text:latest"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Search.TavilyURL == "" {
		cfg.Search.TavilyURL = "https://api.tavily.com/search"
	}
	if cfg.Search.SerperURL == "" {
		cfg.Search.SerperURL = "https://google.serper.dev/search"
	}
	if cfg.Search.DuckDuckGoURL == "" {
		cfg.Search.DuckDuckGoURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.Fetch.HTTPTimeoutSeconds == 0 {
		cfg.Fetch.HTTPTimeoutSeconds = 20
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = cfg.Fetch.HTTPTimeoutSeconds
	}
	if cfg.Fetch.MaxDownloadBytes == 0 {
		cfg.Fetch.MaxDownloadBytes = 2_000_000
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
	if cfg.Ingest.ChunkChars == 0 {
		cfg.Ingest.ChunkChars = 1600
	}
	if cfg.Ingest.Overlap == 0 {
		cfg.Ingest.Overlap = 200
	}
	if cfg.Ingest.MaxURLs == 0 {
		cfg.Ingest.MaxURLs = 50
	}
	if cfg.Ingest.MinTextChars == 0 {
		cfg.Ingest.MinTextChars = 200
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 6
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 20
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 6000
	}
	if cfg.Client.ServiceURL == "" {
		cfg.Client.ServiceURL = "http://localhost:8001"
	}
	if cfg.Client.TimeoutSeconds == 0 {
		cfg.Client.TimeoutSeconds = 90
	}
}
