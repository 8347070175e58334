package config

import (
	"log/slog"

	"github.com/secmon-lab/gapcheck/pkg/service/chunker"
	"github.com/secmon-lab/gapcheck/pkg/service/classifier"
	"github.com/secmon-lab/gapcheck/pkg/service/retriever"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Retrieval holds chunking, retrieval and classification tuning
type Retrieval struct {
	chunkWords    int
	chunkOverlap  int
	topK          int
	rerank        bool
	candidatePool int
	lexicalWeight float64
	concurrency   int
	noQuestions   bool
}

func (x *Retrieval) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "chunk-words",
			Category:    "retrieval",
			Usage:       "Words per chunk",
			Value:       chunker.DefaultSize,
			Sources:     cli.EnvVars("GAPCHECK_CHUNK_WORDS"),
			Destination: &x.chunkWords,
		},
		&cli.IntFlag{
			Name:        "chunk-overlap",
			Category:    "retrieval",
			Usage:       "Words shared by consecutive chunks",
			Value:       chunker.DefaultOverlap,
			Sources:     cli.EnvVars("GAPCHECK_CHUNK_OVERLAP"),
			Destination: &x.chunkOverlap,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Category:    "retrieval",
			Usage:       "Chunks retrieved per requirement or query",
			Value:       classifier.DefaultTopK,
			Sources:     cli.EnvVars("GAPCHECK_TOP_K"),
			Destination: &x.topK,
		},
		&cli.BoolFlag{
			Name:        "rerank",
			Category:    "retrieval",
			Usage:       "Rerank candidates by blending semantic and lexical similarity",
			Sources:     cli.EnvVars("GAPCHECK_RERANK"),
			Destination: &x.rerank,
		},
		&cli.IntFlag{
			Name:        "candidate-pool",
			Category:    "retrieval",
			Usage:       "Candidates fetched before reranking (0 means 3 x top-k)",
			Sources:     cli.EnvVars("GAPCHECK_CANDIDATE_POOL"),
			Destination: &x.candidatePool,
		},
		&cli.FloatFlag{
			Name:        "lexical-weight",
			Category:    "retrieval",
			Usage:       "Weight of lexical similarity when reranking",
			Value:       retriever.DefaultLexicalWeight,
			Sources:     cli.EnvVars("GAPCHECK_LEXICAL_WEIGHT"),
			Destination: &x.lexicalWeight,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Category:    "retrieval",
			Usage:       "Requirements classified or documents ingested in parallel",
			Value:       usecase.DefaultConcurrency,
			Sources:     cli.EnvVars("GAPCHECK_CONCURRENCY"),
			Destination: &x.concurrency,
		},
		&cli.BoolFlag{
			Name:        "no-clarifying-questions",
			Category:    "retrieval",
			Usage:       "Do not ask the judge for clarifying questions",
			Sources:     cli.EnvVars("GAPCHECK_NO_CLARIFYING_QUESTIONS"),
			Destination: &x.noQuestions,
		},
	}
}

func (x Retrieval) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("chunk_words", x.chunkWords),
		slog.Int("chunk_overlap", x.chunkOverlap),
		slog.Int("top_k", x.topK),
		slog.Bool("rerank", x.rerank),
		slog.Int("candidate_pool", x.candidatePool),
		slog.Float64("lexical_weight", x.lexicalWeight),
		slog.Int("concurrency", x.concurrency),
		slog.Bool("clarifying_questions", !x.noQuestions),
	)
}

// UseCaseOptions converts the flags into use case options
func (x *Retrieval) UseCaseOptions() []usecase.Option {
	return []usecase.Option{
		usecase.WithChunker(chunker.New(chunker.WithSize(x.chunkWords), chunker.WithOverlap(x.chunkOverlap))),
		usecase.WithRetrieverOptions(
			retriever.WithRerank(x.rerank),
			retriever.WithCandidatePool(x.candidatePool),
			retriever.WithLexicalWeight(x.lexicalWeight),
		),
		usecase.WithClassifierOptions(classifier.WithClarifyingQuestions(!x.noQuestions)),
		usecase.WithTopK(x.topK),
		usecase.WithConcurrency(x.concurrency),
	}
}
