package config

import (
	"fmt"
	"strconv"

	"github.com/hyperjump/webrag/pkg/utils"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto cfg. Set variables win over file values.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("RAG_DATA_DIR", &cfg.Storage.DataDir)
	str("RAG_VECTOR_STORE_DIR", &cfg.Storage.VectorStoreDir)
	str("RAG_EMBEDDING_PROVIDER", &cfg.Embedding.Provider)
	str("OLLAMA_URL", &cfg.Embedding.URL)
	str("OLLAMA_EMBED_MODEL", &cfg.Embedding.Model)
	str("TAVILY_API_KEY", &cfg.Search.TavilyAPIKey)
	str("SERPER_API_KEY", &cfg.Search.SerperAPIKey)
	str("RAG_USER_AGENT", &cfg.Fetch.UserAgent)
	str("RAG_HOST", &cfg.Server.Host)
	str("RAG_SERVICE_URL", &cfg.Client.ServiceURL)

	if err := integer("RAG_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if v, ok := lookup("RAG_HTTP_TIMEOUT_S"); ok && v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RAG_HTTP_TIMEOUT_S: %w", err)
		}
		cfg.Fetch.HTTPTimeoutSeconds = int(secs)
		if cfg.Fetch.HTTPTimeoutSeconds < 1 {
			cfg.Fetch.HTTPTimeoutSeconds = 1
		}
	}
	if v, ok := lookup("RAG_MAX_DOWNLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid RAG_MAX_DOWNLOAD_BYTES: %w", err)
		}
		cfg.Fetch.MaxDownloadBytes = n
	}
	if v, ok := lookup("RAG_ALLOWED_DOMAINS"); ok {
		cfg.Fetch.AllowedDomains = utils.SplitList(v)
	}
	if v, ok := lookup("RAG_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid RAG_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	return nil
}
