package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

const (
	ThresholdOOTBMatch    = 0.85
	ThresholdPartialMatch = 0.65
	ThresholdCustomDev    = 0.4

	DefaultTopK = 15

	contextChunks      = 3
	contextChunkChars  = 800
	citationCount      = 3
	questionConfidence = 0.5
	maxQuestions       = 5

	similarityRationale = "Similarity-based classification"
)

// Retriever returns the chunks most relevant to a query, best first
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]*model.ScoredChunk, error)
}

// Classifier assigns a coverage label to requirements
type Classifier struct {
	retriever Retriever
	judge     interfaces.Judge
	topK      int
	questions bool
}

// Option is a functional option for Classifier configuration
type Option func(*Classifier)

// WithJudge sets the collaborator asked to confirm labels and write clarifying questions.
// Without a judge, labels come from retrieval similarity only.
func WithJudge(judge interfaces.Judge) Option {
	return func(c *Classifier) {
		c.judge = judge
	}
}

// WithTopK sets how many chunks are retrieved per requirement
func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithClarifyingQuestions toggles clarifying questions for weakly covered requirements
func WithClarifyingQuestions(enabled bool) Option {
	return func(c *Classifier) {
		c.questions = enabled
	}
}

// New creates a Classifier
func New(retriever Retriever, opts ...Option) *Classifier {
	c := &Classifier{
		retriever: retriever,
		topK:      DefaultTopK,
		questions: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LabelFromSimilarity maps the best retrieval similarity to a label
func LabelFromSimilarity(similarity float64) types.Classification {
	switch {
	case similarity >= ThresholdOOTBMatch:
		return types.ClassificationOOTBMatch
	case similarity >= ThresholdPartialMatch:
		return types.ClassificationPartialMatch
	case similarity >= ThresholdCustomDev:
		return types.ClassificationCustomDev
	default:
		return types.ClassificationOpenQuestion
	}
}

// CombineConfidence averages both signals when present, otherwise uses whichever exists, otherwise 0
func CombineConfidence(similarity, external *float64) float64 {
	switch {
	case similarity != nil && external != nil:
		return 0.5**similarity + 0.5**external
	case similarity != nil:
		return *similarity
	case external != nil:
		return *external
	default:
		return 0
	}
}

// isFatal reports errors that must abort the whole analysis instead of degrading one requirement
func isFatal(err error) bool {
	return errors.Is(err, model.ErrEmbeddingMismatch) ||
		errors.Is(err, model.ErrInvalidConfig) ||
		errors.Is(err, model.ErrInvalidInput) ||
		errors.Is(err, model.ErrProviderRejected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Classify labels a single requirement. Judge failures and transient retrieval failures
// degrade the result; configuration errors are returned.
func (c *Classifier) Classify(ctx context.Context, requirement string) (*model.GapResult, error) {
	logger := logging.From(ctx).With("requirement", requirement)

	hits, err := c.retriever.Retrieve(ctx, requirement, c.topK)
	if err != nil {
		if isFatal(err) {
			return nil, goerr.Wrap(err, "failed to retrieve evidence", goerr.V("requirement", requirement))
		}
		logger.Warn("retrieval failed, degrading requirement", "error", err.Error())
		return degradedResult(requirement, "retrieval failed"), nil
	}

	similarity := 0.0
	for _, hit := range hits {
		similarity = max(similarity, hit.Similarity())
	}

	result := &model.GapResult{
		Requirement:    requirement,
		Classification: LabelFromSimilarity(similarity),
		Similarity:     model.Round3(similarity),
		Rationale:      similarityRationale,
		Citations:      citations(hits),
	}

	excerpt := buildContext(hits)

	var external *float64
	if len(hits) > 0 && c.judge != nil {
		judgment := c.judgeRequirement(ctx, requirement, excerpt)
		if judgment.Ok() {
			v := judgment.Verdict
			if v.Label != "" {
				result.Classification = v.Label
			}
			if v.Rationale != "" {
				result.Rationale = v.Rationale
			}
			conf := v.Confidence
			external = &conf
			result.JudgeConfidence = &conf
		} else {
			logger.Warn("judge unavailable, using similarity only", "reason", judgment.Degraded)
			result.Degraded = judgment.Degraded
			result.Rationale = fmt.Sprintf("%s (%s)", similarityRationale, judgment.Degraded)
		}
	}

	result.Confidence = model.Round3(CombineConfidence(&similarity, external))

	if c.questions && c.judge != nil &&
		(result.Classification == types.ClassificationOpenQuestion || result.Confidence < questionConfidence) {
		result.ClarifyingQuestions = c.clarifyingQuestions(ctx, requirement, excerpt)
	}

	return result, nil
}

func degradedResult(requirement, reason string) *model.GapResult {
	return &model.GapResult{
		Requirement:    requirement,
		Classification: types.ClassificationOpenQuestion,
		Rationale:      fmt.Sprintf("%s (%s)", similarityRationale, reason),
		Degraded:       reason,
		Citations:      []model.Citation{},
	}
}

func citations(hits []*model.ScoredChunk) []model.Citation {
	out := make([]model.Citation, 0, min(citationCount, len(hits)))
	for _, hit := range hits[:min(citationCount, len(hits))] {
		out = append(out, model.Citation{
			Source:     hit.Chunk.Source,
			SourceID:   hit.Chunk.SourceID,
			Title:      hit.Chunk.Title,
			URL:        hit.Chunk.URL,
			ChunkIndex: hit.Chunk.Index,
			Score:      model.Round3(hit.Similarity()),
		})
	}
	return out
}

func buildContext(hits []*model.ScoredChunk) string {
	parts := make([]string, 0, contextChunks)
	for _, hit := range hits[:min(contextChunks, len(hits))] {
		parts = append(parts, truncate(hit.Chunk.Text, contextChunkChars))
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (c *Classifier) judgeRequirement(ctx context.Context, requirement, excerpt string) Judgment {
	text, err := c.judge.Judge(ctx, classificationPrompt(requirement, excerpt))
	if err != nil {
		return degradedJudgment("judge call failed")
	}

	verdict, err := ParseVerdict(text)
	if err != nil {
		logging.From(ctx).Debug("unparseable judge response", "error", err.Error(), "response", text)
		return degradedJudgment("judge response unparseable")
	}
	return okJudgment(verdict)
}

func (c *Classifier) clarifyingQuestions(ctx context.Context, requirement, excerpt string) []string {
	text, err := c.judge.Judge(ctx, questionPrompt(requirement, excerpt))
	if err != nil {
		logging.From(ctx).Warn("failed to get clarifying questions", "error", err.Error())
		return nil
	}
	return ParseQuestions(text, maxQuestions)
}

func classificationPrompt(requirement, excerpt string) string {
	return "You are classifying ecommerce storefront platform coverage for a requirement.\n" +
		"Classes: OOTB Match, Partial Match, Custom Dev Required, Open Question.\n" +
		"Return a single line with: <classification> | <confidence 0-1> | <short rationale>.\n\n" +
		"Requirement: " + requirement + "\n\n" +
		"Context:\n" + excerpt + "\n"
}

func questionPrompt(requirement, excerpt string) string {
	if excerpt == "" {
		excerpt = "(no related documentation found)"
	}
	return "The following requirement could not be matched confidently to existing storefront platform capabilities.\n" +
		"Write 3 to 5 short clarifying questions to ask the business owner, one per line, without numbering.\n\n" +
		"Requirement: " + requirement + "\n\n" +
		"Context:\n" + excerpt + "\n"
}
