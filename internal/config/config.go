// Package config provides configuration loading and structs for the WebRAG service.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Client    ClientConfig    `yaml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// RequestTimeout returns the per-request deadline applied by the router.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// StorageConfig holds on-disk locations. VectorStoreDir holds the collection database.
type StorageConfig struct {
	DataDir        string `yaml:"data_dir"`
	VectorStoreDir string `yaml:"vector_store_dir"`
}

// DatabasePath returns the SQLite file backing all collections.
func (s StorageConfig) DatabasePath() string {
	return filepath.Join(s.VectorStoreDir, "webrag.db")
}

// EmbeddingConfig selects and configures the embedding backend.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // ollama | mock
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"` // mock provider only
	CacheSize      int    `yaml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SearchConfig holds web search provider credentials and endpoints.
type SearchConfig struct {
	TavilyAPIKey      string `yaml:"tavily_api_key"`
	TavilyURL         string `yaml:"tavily_url"`
	SerperAPIKey      string `yaml:"serper_api_key"`
	SerperURL         string `yaml:"serper_url"`
	DuckDuckGoEnabled *bool  `yaml:"duckduckgo_enabled"`
	DuckDuckGoURL     string `yaml:"duckduckgo_url"`
}

// DuckDuckGoOrDefault reports whether the keyless fallback is enabled; defaults to true when unset.
func (s *SearchConfig) DuckDuckGoOrDefault() bool {
	if s.DuckDuckGoEnabled != nil {
		return *s.DuckDuckGoEnabled
	}
	return true
}

// FetchConfig bounds outbound page downloads.
type FetchConfig struct {
	HTTPTimeoutSeconds int      `yaml:"http_timeout_seconds"`
	MaxDownloadBytes   int64    `yaml:"max_download_bytes"`
	UserAgent          string   `yaml:"user_agent"`
	AllowedDomains     []string `yaml:"allowed_domains"`
}

// HTTPTimeout returns the per-call timeout shared by all outbound HTTP clients.
func (f FetchConfig) HTTPTimeout() time.Duration {
	return time.Duration(f.HTTPTimeoutSeconds) * time.Second
}

// IngestConfig holds chunking defaults and per-request limits.
type IngestConfig struct {
	ChunkChars   int `yaml:"chunk_chars"`
	Overlap      int `yaml:"overlap"`
	MaxURLs      int `yaml:"max_urls"`
	MinTextChars int `yaml:"min_text_chars"`
}

// RetrievalConfig holds query and context assembly limits.
type RetrievalConfig struct {
	DefaultK        int `yaml:"default_k"`
	MaxK            int `yaml:"max_k"`
	MaxContextChars int `yaml:"max_context_chars"`
}

// ClientConfig configures the outbound client used by the CLI and MCP tool.
type ClientConfig struct {
	ServiceURL     string `yaml:"service_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads and parses the config file at path, overlays environment variables,
// applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := finish(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromEnv builds a config from environment variables and defaults only.
func FromEnv() (*Config, error) {
	var cfg Config
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	if err := finish(&cfg, wd); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config, configDir string) error {
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return err
	}
	ApplyDefaults(cfg)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Storage.VectorStoreDir = expandPath(cfg.Storage.VectorStoreDir, configDir)
	return cfg.Validate()
}

// Validate reports settings that would make the service unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case ProviderOllama, ProviderMock:
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: %s, %s)", c.Embedding.Provider, ProviderOllama, ProviderMock)
	}
	if c.Fetch.MaxDownloadBytes <= 0 {
		return fmt.Errorf("max_download_bytes must be positive")
	}
	if c.Ingest.ChunkChars <= 0 {
		return fmt.Errorf("chunk_chars must be positive")
	}
	return nil
}

// Redacted returns a copy of c with API keys masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	out.Search.TavilyAPIKey = mask(c.Search.TavilyAPIKey)
	out.Search.SerperAPIKey = mask(c.Search.SerperAPIKey)
	return &out
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
