package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/differ"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// AnalyzeInput describes one analysis run. Requirements wins over Text when both are set.
type AnalyzeInput struct {
	Text         string
	Requirements []string
	TopK         int

	// BaselineName compares the results with a saved baseline
	BaselineName string
	// SaveBaseline stores the results as a baseline under this name
	SaveBaseline string
}

func (x AnalyzeInput) requirements() []string {
	if len(x.Requirements) == 0 {
		return model.ParseRequirements(x.Text)
	}
	reqs := make([]string, 0, len(x.Requirements))
	for _, r := range x.Requirements {
		if r = strings.TrimSpace(r); r != "" {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// Analyze classifies every requirement and optionally diffs the results against a baseline
func (uc *UseCases) Analyze(ctx context.Context, input AnalyzeInput) (*model.AnalysisReport, error) {
	reqs := input.requirements()
	if len(reqs) == 0 {
		return nil, goerr.Wrap(model.ErrEmptyRequirements, "nothing to analyze")
	}
	if input.TopK < 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "top_k must not be negative", goerr.V("top_k", input.TopK))
	}

	var saveName string
	if input.SaveBaseline != "" {
		name, err := model.SafeBaselineName(input.SaveBaseline)
		if err != nil {
			return nil, err
		}
		saveName = name
	}

	var baseline *model.Baseline
	if input.BaselineName != "" {
		b, err := uc.GetBaseline(ctx, input.BaselineName)
		if err != nil {
			return nil, err
		}
		baseline = b
	}

	results, err := uc.classifyAll(ctx, reqs, input.TopK)
	if err != nil {
		return nil, err
	}

	report := &model.AnalysisReport{
		ID:        model.NewAnalysisID(),
		CreatedAt: uc.now().UTC(),
		Results:   results,
	}

	if baseline != nil {
		cmp := differ.Compare(results, baseline)
		report.Comparison = cmp
		report.Results = cmp.Results
	}

	if saveName != "" {
		if _, err := uc.SaveBaseline(ctx, saveName, results); err != nil {
			return nil, err
		}
	}

	logging.From(ctx).Info("analysis finished",
		"analysis_id", report.ID,
		"requirements", len(reqs),
		"baseline", input.BaselineName)

	if report.Comparison != nil && report.Comparison.Summary.HasDrift() && uc.notifier != nil {
		uc.tasks.Dispatch(ctx, "notify_drift", func(ctx context.Context) error {
			return uc.notifier.NotifyDrift(ctx, report)
		})
	}

	return report, nil
}

func (uc *UseCases) classifyAll(ctx context.Context, reqs []string, topK int) ([]*model.GapResult, error) {
	c := uc.classifier(topK)
	results := make([]*model.GapResult, len(reqs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.concurrency)
	for i, req := range reqs {
		eg.Go(func() error {
			r, err := c.Classify(egCtx, req)
			if err != nil {
				return goerr.Wrap(err, "failed to classify requirement", goerr.V("requirement", req))
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Query returns the chunks closest to question
func (uc *UseCases) Query(ctx context.Context, question string, topK int) ([]*model.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "question is required")
	}
	if topK < 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "top_k must not be negative", goerr.V("top_k", topK))
	}
	if topK == 0 {
		topK = uc.topK
	}
	return uc.retriever.Retrieve(ctx, question, topK)
}
