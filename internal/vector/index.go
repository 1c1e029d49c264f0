// Package vector holds per-scope collections of embedded chunks and searches them
// by cosine distance.
package vector

import "context"

// VectorIndex stores vectors by ID and returns nearest neighbours.
type VectorIndex interface {
	// Add inserts vectors, replacing any vector already stored under the same ID.
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Close() error
}

// VectorResult is a single vector search hit (ID is the chunk ID).
type VectorResult struct {
	ID       string
	Distance float64 // cosine distance, 0 for identical direction
}
