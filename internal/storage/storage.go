// Package storage defines the persistence interface for collections and their chunks.
package storage

import (
	"context"

	"github.com/hyperjump/webrag/internal/models"
)

// Storage persists named collections of embedded chunks.
type Storage interface {
	// Collection operations
	EnsureCollection(ctx context.Context, name string) (int64, error)
	ListCollections(ctx context.Context) ([]*models.CollectionInfo, error)

	// Chunk operations, scoped to a collection ID returned by EnsureCollection
	UpsertChunks(ctx context.Context, collectionID int64, chunks []*models.Chunk) error
	HasURL(ctx context.Context, collectionID int64, url string) (bool, error)
	LoadChunks(ctx context.Context, collectionID int64) ([]*models.Chunk, error)

	// Path returns the database file, or "" for non-file backends.
	Path() string
	Close() error
}
