// Package docid provides deterministic identifiers for chunks and collections.
package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

const (
	collectionPrefix = "webdocs_"
	defaultScope     = "global"
	// MaxCollectionName bounds collection identifiers.
	MaxCollectionName = 63
)

var unsafeScopeChars = regexp.MustCompile(`[^a-z0-9_\-]`)

// ChunkID returns the stable identifier for chunk index of url.
// Re-ingesting the same URL yields the same IDs, so stored chunks are replaced, not duplicated.
func ChunkID(url string, index int) string {
	return hashID(url, strconv.Itoa(index))
}

func hashID(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}

// CollectionName maps a caller-supplied scope to its collection identifier.
// Blank scopes map to the global collection.
func CollectionName(scope string) string {
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = defaultScope
	}
	name := collectionPrefix + unsafeScopeChars.ReplaceAllString(scope, "_")
	if len(name) > MaxCollectionName {
		name = name[:MaxCollectionName]
	}
	return name
}
