package interfaces

import (
	"context"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

// Repository bundles the persistence backends used by the use cases
type Repository interface {
	Chunk() ChunkRepository
	Baseline() BaselineRepository
	Close() error
}

// ChunkRepository is the vector index over document chunks. One instance is bound to
// a single collection built with a single embedding fingerprint.
type ChunkRepository interface {
	// Collection returns the name of the backing collection
	Collection() string

	// Upsert inserts or overwrites chunks by ID. chunks and embeddings are parallel slices.
	Upsert(ctx context.Context, chunks []*model.Chunk, embeddings [][]float32) error

	// Query returns up to limit chunks ordered by ascending cosine distance
	Query(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredChunk, error)

	// ExistsWithHash reports whether any chunk of the document carries contentHash
	ExistsWithHash(ctx context.Context, source model.SourceKind, sourceID, contentHash string) (bool, error)

	// DeleteByDocument removes every chunk of a document
	DeleteByDocument(ctx context.Context, source model.SourceKind, sourceID string) error

	// ReplaceDocument atomically replaces all chunks of a document
	ReplaceDocument(ctx context.Context, source model.SourceKind, sourceID string, chunks []*model.Chunk, embeddings [][]float32) error

	// ListByDocument returns the chunks of a document ordered by index
	ListByDocument(ctx context.Context, source model.SourceKind, sourceID string) ([]*model.Chunk, error)

	// Count returns the number of chunks in the collection
	Count(ctx context.Context) (int, error)
}

// BaselineRepository stores named analysis snapshots. Names are already sanitized.
type BaselineRepository interface {
	// Get returns model.ErrBaselineNotFound when no baseline is stored under name
	Get(ctx context.Context, name string) (*model.Baseline, error)

	// Put replaces the whole baseline stored under baseline.Name
	Put(ctx context.Context, baseline *model.Baseline) error

	// List returns summaries ordered by name
	List(ctx context.Context) ([]*model.BaselineSummary, error)

	Delete(ctx context.Context, name string) error
}
