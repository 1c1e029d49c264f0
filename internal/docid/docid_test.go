package docid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestChunkID(t *testing.T) {
	id1 := ChunkID("https://go.dev/doc", 0)
	id2 := ChunkID("https://go.dev/doc", 0)
	if id1 != id2 {
		t.Errorf("same url and index should give same ID: %q vs %q", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(id1))
	}
	sum := sha256.Sum256([]byte("https://go.dev/doc|0"))
	if want := hex.EncodeToString(sum[:]); id1 != want {
		t.Errorf("ChunkID = %s, want sha256 of url|index %s", id1, want)
	}
}

func TestChunkID_distinct(t *testing.T) {
	if ChunkID("https://a.example", 0) == ChunkID("https://a.example", 1) {
		t.Error("different indexes should give different IDs")
	}
	if ChunkID("https://a.example", 0) == ChunkID("https://b.example", 0) {
		t.Error("different urls should give different IDs")
	}
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		scope string
		want  string
	}{
		{"", "webdocs_global"},
		{"   ", "webdocs_global"},
		{"global", "webdocs_global"},
		{" FastAPI ", "webdocs_fastapi"},
		{"my scope/v2", "webdocs_my_scope_v2"},
		{"go-chi_router", "webdocs_go-chi_router"},
		{"café", "webdocs_caf_"},
	}
	for _, tt := range tests {
		if got := CollectionName(tt.scope); got != tt.want {
			t.Errorf("CollectionName(%q) = %q, want %q", tt.scope, got, tt.want)
		}
	}
}

func TestCollectionName_truncated(t *testing.T) {
	got := CollectionName(strings.Repeat("x", 100))
	if len(got) != MaxCollectionName {
		t.Errorf("len = %d, want %d", len(got), MaxCollectionName)
	}
	if !strings.HasPrefix(got, collectionPrefix) {
		t.Errorf("missing prefix: %q", got)
	}
}

func TestCollectionName_stable(t *testing.T) {
	if CollectionName("Docs") != CollectionName("docs") {
		t.Error("scopes differing only by case should share a collection")
	}
}
