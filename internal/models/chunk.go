// Package models defines core data structures for chunks, requests, and retrieval results.
package models

import "time"

// Chunk is one contiguous text window of a fetched page, stored in a scope's collection.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	URL        string    `json:"url" db:"url"`
	Index      int       `json:"chunk" db:"chunk_index"`
	Text       string    `json:"text" db:"content"`
	BatchID    string    `json:"batch_id,omitempty" db:"batch_id"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
	Embedding  []float32 `json:"-" db:"-"`
}

// RetrievalResult is a single nearest-neighbour hit. Lower distance is more similar.
type RetrievalResult struct {
	URL      string  `json:"url"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// CollectionInfo summarizes a stored collection.
type CollectionInfo struct {
	Name      string    `json:"name"`
	Chunks    int64     `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}
