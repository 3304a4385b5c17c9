// Package vectordb stores embedded knowledge chunks and answers nearest
// neighbour queries. Chromem is embedded and needs no server; PgVector uses
// Postgres with the pgvector extension.
package vectordb

import "context"

// Document is a chunk of knowledge with its embedding.
type Document struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"-"`
	// Score is the cosine similarity to the query; set by Search only.
	Score float32 `json:"score,omitempty"`
}

// VectorDB is the storage contract used by the knowledge base.
type VectorDB interface {
	// Create makes the collection/table if it does not exist.
	Create(ctx context.Context) error
	// Exists reports whether the collection/table exists.
	Exists(ctx context.Context) (bool, error)
	// Drop removes the collection/table and all documents.
	Drop(ctx context.Context) error
	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, docs []Document) error
	// Search returns up to limit documents ordered by descending similarity.
	Search(ctx context.Context, embedding []float32, limit int) ([]Document, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}
