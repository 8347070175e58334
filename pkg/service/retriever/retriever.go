package retriever

import (
	"cmp"
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/service/lexical"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

const (
	// DefaultLexicalWeight is the share of the lexical signal in the combined rerank score
	DefaultLexicalWeight = 0.3

	defaultPoolFactor = 3
)

// Retriever finds the chunks most relevant to a free-text query
type Retriever struct {
	embedder interfaces.Embedder
	chunks   interfaces.ChunkRepository

	rerank        bool
	candidatePool int
	lexicalWeight float64
}

// Option is a functional option for Retriever configuration
type Option func(*Retriever)

// WithRerank enables over-fetching and hybrid reranking
func WithRerank(enabled bool) Option {
	return func(r *Retriever) {
		r.rerank = enabled
	}
}

// WithCandidatePool sets how many candidates are fetched before reranking.
// Zero or less means three times the requested count.
func WithCandidatePool(n int) Option {
	return func(r *Retriever) {
		r.candidatePool = n
	}
}

// WithLexicalWeight sets the lexical share of the combined score, clamped to [0, 1]
func WithLexicalWeight(w float64) Option {
	return func(r *Retriever) {
		r.lexicalWeight = model.Clamp01(w)
	}
}

// New creates a Retriever reading from chunks with query vectors from embedder
func New(embedder interfaces.Embedder, chunks interfaces.ChunkRepository, opts ...Option) *Retriever {
	r := &Retriever{
		embedder:      embedder,
		chunks:        chunks,
		lexicalWeight: DefaultLexicalWeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k chunks for query, best first
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "k must be positive", goerr.V("k", k))
	}

	vectors, err := r.embedder.Embed(ctx, []string{query}, types.TaskRetrievalQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(vectors) != 1 {
		return nil, goerr.Wrap(model.ErrProviderRejected, "embedder returned unexpected number of vectors",
			goerr.V("count", len(vectors)))
	}

	limit := k
	if r.rerank {
		pool := r.candidatePool
		if pool <= 0 {
			pool = defaultPoolFactor * k
		}
		limit = max(k, pool)
	}

	hits, err := r.chunks.Query(ctx, vectors[0], limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query chunks",
			goerr.V("collection", r.chunks.Collection()),
			goerr.V("limit", limit))
	}

	if !r.rerank {
		for _, hit := range hits {
			hit.Semantic = hit.Similarity()
			hit.Score = hit.Semantic
		}
		return hits[:min(k, len(hits))], nil
	}

	logging.From(ctx).Debug("reranking candidates",
		"candidates", len(hits),
		"k", k,
		"lexical_weight", r.lexicalWeight)

	return Rerank(query, hits, k, r.lexicalWeight), nil
}

// Rerank scores hits by a weighted blend of semantic similarity and token overlap with
// query, then keeps the best k. Ties keep retrieval order.
func Rerank(query string, hits []*model.ScoredChunk, k int, lexicalWeight float64) []*model.ScoredChunk {
	w := model.Clamp01(lexicalWeight)
	queryTokens := lexical.Tokenize(query)

	ranked := make([]*model.ScoredChunk, len(hits))
	for i, hit := range hits {
		hit.Semantic = hit.Similarity()
		hit.Lexical = lexical.Jaccard(queryTokens, lexical.Tokenize(hit.Chunk.Text))
		hit.Score = w*hit.Lexical + (1-w)*hit.Semantic
		ranked[i] = hit
	}

	slices.SortStableFunc(ranked, func(a, b *model.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return ranked[:min(k, len(ranked))]
}
