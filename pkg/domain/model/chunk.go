package model

import (
	"fmt"
	"math"
	"time"
)

// ChunkID is "source:source_id:index"
type ChunkID string

// NewChunkID builds the stable identifier of the index-th chunk of a document
func NewChunkID(source SourceKind, sourceID string, index int) ChunkID {
	return ChunkID(fmt.Sprintf("%s:%s:%d", source, sourceID, index))
}

// Chunk is a window of document text together with the metadata of its parent document
type Chunk struct {
	ID          ChunkID
	Source      SourceKind
	SourceID    string
	Index       int
	Title       string
	URL         string
	Scope       string
	UpdatedAt   time.Time
	ContentHash string
	Text        string
}

// ScoredChunk is a query hit. Distance is cosine distance (lower is closer).
// Semantic, Lexical and Score are filled when hybrid reranking is applied.
type ScoredChunk struct {
	Chunk    *Chunk
	Distance float64
	Semantic float64
	Lexical  float64
	Score    float64
}

// Similarity converts the cosine distance into a similarity clamped to [0, 1]
func (s *ScoredChunk) Similarity() float64 {
	return Clamp01(1 - s.Distance)
}

// Clamp01 limits v to the closed range [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
