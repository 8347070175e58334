package usecase

import (
	"time"

	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/service/chunker"
	"github.com/secmon-lab/gapcheck/pkg/service/classifier"
	"github.com/secmon-lab/gapcheck/pkg/service/retriever"
	"github.com/secmon-lab/gapcheck/pkg/utils/async"
)

const DefaultConcurrency = 4

type UseCases struct {
	repo      interfaces.Repository
	embedder  interfaces.Embedder
	judge     interfaces.Judge
	baselines interfaces.BaselineRepository
	sources   []interfaces.DocumentSource
	notifier  interfaces.DriftNotifier

	chunker        *chunker.Chunker
	retrieverOpts  []retriever.Option
	classifierOpts []classifier.Option
	concurrency    int
	topK           int
	now            func() time.Time

	locks     *keyLock
	retriever *retriever.Retriever
	tasks     async.Tracker
}

type Option func(*UseCases)

// WithJudge enables label confirmation and clarifying questions
func WithJudge(judge interfaces.Judge) Option {
	return func(uc *UseCases) {
		uc.judge = judge
	}
}

// WithSources sets the document sources walked by IngestAll
func WithSources(sources ...interfaces.DocumentSource) Option {
	return func(uc *UseCases) {
		uc.sources = append(uc.sources, sources...)
	}
}

// WithNotifier sets where baseline drift is announced
func WithNotifier(notifier interfaces.DriftNotifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

// WithBaselineRepository stores baselines somewhere other than repo.Baseline()
func WithBaselineRepository(baselines interfaces.BaselineRepository) Option {
	return func(uc *UseCases) {
		uc.baselines = baselines
	}
}

func WithChunker(c *chunker.Chunker) Option {
	return func(uc *UseCases) {
		uc.chunker = c
	}
}

func WithRetrieverOptions(opts ...retriever.Option) Option {
	return func(uc *UseCases) {
		uc.retrieverOpts = append(uc.retrieverOpts, opts...)
	}
}

func WithClassifierOptions(opts ...classifier.Option) Option {
	return func(uc *UseCases) {
		uc.classifierOpts = append(uc.classifierOpts, opts...)
	}
}

// WithConcurrency bounds parallel classification and ingestion
func WithConcurrency(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// WithTopK sets the default number of chunks retrieved per requirement or query
func WithTopK(k int) Option {
	return func(uc *UseCases) {
		if k > 0 {
			uc.topK = k
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func New(repo interfaces.Repository, embedder interfaces.Embedder, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:        repo,
		embedder:    embedder,
		chunker:     chunker.New(),
		concurrency: DefaultConcurrency,
		topK:        classifier.DefaultTopK,
		now:         time.Now,
		locks:       newKeyLock(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.baselines == nil {
		uc.baselines = repo.Baseline()
	}
	uc.retriever = retriever.New(embedder, repo.Chunk(), uc.retrieverOpts...)

	return uc
}

// Wait blocks until background work such as drift notifications has finished
func (uc *UseCases) Wait() {
	uc.tasks.Wait()
}

func (uc *UseCases) classifier(topK int) *classifier.Classifier {
	if topK <= 0 {
		topK = uc.topK
	}
	opts := []classifier.Option{classifier.WithTopK(topK)}
	if uc.judge != nil {
		opts = append(opts, classifier.WithJudge(uc.judge))
	}
	opts = append(opts, uc.classifierOpts...)
	return classifier.New(uc.retriever, opts...)
}
