package memory

import (
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps chunks and baselines in process memory. It is used for tests and local runs.
type Memory struct {
	chunk    *chunkRepository
	baseline *baselineRepository
}

var _ interfaces.Repository = &Memory{}

// Option is a functional option for Memory configuration
type Option func(*Memory)

// WithCollection overrides the collection name derived from the embedding fingerprint
func WithCollection(name string) Option {
	return func(m *Memory) {
		if name != "" {
			m.chunk.collection = name
		}
	}
}

// New creates an in-memory repository whose chunk collection accepts vectors of fp only
func New(fp model.EmbeddingFingerprint, opts ...Option) *Memory {
	m := &Memory{
		chunk:    newChunkRepository(fp),
		baseline: newBaselineRepository(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Chunk() interfaces.ChunkRepository {
	return m.chunk
}

func (m *Memory) Baseline() interfaces.BaselineRepository {
	return m.baseline
}

func (m *Memory) Close() error {
	return nil
}
