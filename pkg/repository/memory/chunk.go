package memory

import (
	"cmp"
	"context"
	"math"
	"slices"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

type documentKey struct {
	source   model.SourceKind
	sourceID string
}

type chunkEntry struct {
	chunk     *model.Chunk
	embedding []float32
}

type chunkRepository struct {
	mu          sync.RWMutex
	fingerprint model.EmbeddingFingerprint
	collection  string
	chunks      map[model.ChunkID]*chunkEntry
	// secondary index for per-document lookups
	documents map[documentKey]map[model.ChunkID]struct{}
}

func newChunkRepository(fp model.EmbeddingFingerprint) *chunkRepository {
	return &chunkRepository{
		fingerprint: fp,
		collection:  fp.CollectionName(),
		chunks:      make(map[model.ChunkID]*chunkEntry),
		documents:   make(map[documentKey]map[model.ChunkID]struct{}),
	}
}

func copyChunk(c *model.Chunk) *model.Chunk {
	copied := *c
	return &copied
}

func (r *chunkRepository) Collection() string {
	return r.collection
}

func (r *chunkRepository) validate(chunks []*model.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return goerr.Wrap(model.ErrInvalidInput, "chunks and embeddings differ in length",
			goerr.V("chunks", len(chunks)),
			goerr.V("embeddings", len(embeddings)))
	}
	for _, emb := range embeddings {
		if err := r.fingerprint.CheckDimension(r.collection, emb); err != nil {
			return err
		}
	}
	return nil
}

// put must be called with mu held for writing
func (r *chunkRepository) put(chunk *model.Chunk, embedding []float32) {
	key := documentKey{source: chunk.Source, sourceID: chunk.SourceID}
	if prev, ok := r.chunks[chunk.ID]; ok {
		prevKey := documentKey{source: prev.chunk.Source, sourceID: prev.chunk.SourceID}
		delete(r.documents[prevKey], chunk.ID)
	}

	r.chunks[chunk.ID] = &chunkEntry{
		chunk:     copyChunk(chunk),
		embedding: slices.Clone(embedding),
	}
	if r.documents[key] == nil {
		r.documents[key] = make(map[model.ChunkID]struct{})
	}
	r.documents[key][chunk.ID] = struct{}{}
}

// deleteDocument must be called with mu held for writing
func (r *chunkRepository) deleteDocument(key documentKey) {
	for id := range r.documents[key] {
		delete(r.chunks, id)
	}
	delete(r.documents, key)
}

func (r *chunkRepository) Upsert(ctx context.Context, chunks []*model.Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 && len(embeddings) == 0 {
		return nil
	}
	if err := r.validate(chunks, embeddings); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, chunk := range chunks {
		r.put(chunk, embeddings[i])
	}
	return nil
}

func (r *chunkRepository) Query(ctx context.Context, embedding []float32, limit int) ([]*model.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := r.fingerprint.CheckDimension(r.collection, embedding); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*model.ScoredChunk, 0, len(r.chunks))
	for _, entry := range r.chunks {
		results = append(results, &model.ScoredChunk{
			Chunk:    copyChunk(entry.chunk),
			Distance: cosineDistance(embedding, entry.embedding),
		})
	}

	slices.SortFunc(results, func(a, b *model.ScoredChunk) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.ID, b.Chunk.ID)
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

func (r *chunkRepository) ExistsWithHash(ctx context.Context, source model.SourceKind, sourceID, contentHash string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.documents[documentKey{source: source, sourceID: sourceID}] {
		if r.chunks[id].chunk.ContentHash == contentHash {
			return true, nil
		}
	}
	return false, nil
}

func (r *chunkRepository) DeleteByDocument(ctx context.Context, source model.SourceKind, sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteDocument(documentKey{source: source, sourceID: sourceID})
	return nil
}

func (r *chunkRepository) ReplaceDocument(ctx context.Context, source model.SourceKind, sourceID string, chunks []*model.Chunk, embeddings [][]float32) error {
	if err := r.validate(chunks, embeddings); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if chunk.Source != source || chunk.SourceID != sourceID {
			return goerr.Wrap(model.ErrInvalidInput, "chunk belongs to another document",
				goerr.V("chunk_id", chunk.ID),
				goerr.V("source", source),
				goerr.V("source_id", sourceID))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleteDocument(documentKey{source: source, sourceID: sourceID})
	for i, chunk := range chunks {
		r.put(chunk, embeddings[i])
	}
	return nil
}

func (r *chunkRepository) ListByDocument(ctx context.Context, source model.SourceKind, sourceID string) ([]*model.Chunk, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.documents[documentKey{source: source, sourceID: sourceID}]
	chunks := make([]*model.Chunk, 0, len(ids))
	for id := range ids {
		chunks = append(chunks, copyChunk(r.chunks[id].chunk))
	}
	slices.SortFunc(chunks, func(a, b *model.Chunk) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return chunks, nil
}

func (r *chunkRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chunks), nil
}

// cosineDistance returns 1 - cosine similarity; zero vectors are maximally distant
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 1
	}

	return 1 - dot/denom
}
