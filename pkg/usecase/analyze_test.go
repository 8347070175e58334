package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/secmon-lab/gapcheck/pkg/utils/testutil"
)

type notifierFunc func(ctx context.Context, report *model.AnalysisReport) error

func (f notifierFunc) NotifyDrift(ctx context.Context, report *model.AnalysisReport) error {
	return f(ctx, report)
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func seed(t *testing.T, uc *usecase.UseCases, texts ...string) {
	t.Helper()
	for i, text := range texts {
		_, err := uc.IngestDocument(context.Background(), newDoc(string(rune('a'+i))+".md", text))
		gt.NoError(t, err).Required()
	}
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("results keep requirement order", func(t *testing.T) {
		uc, _, _ := setup(t, usecase.WithClock(func() time.Time { return fixedNow }), usecase.WithConcurrency(2))
		seed(t, uc, "gift cards can be redeemed at checkout", "store locator shows opening hours")

		report, err := uc.Analyze(ctx, usecase.AnalyzeInput{
			Text: "1. Store locator shows opening hours\n- Gift cards can be redeemed at checkout\n- Subscription boxes with monthly billing",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, report.ID).NotEqual(model.AnalysisID(""))
		gt.Value(t, report.CreatedAt).Equal(fixedNow)
		gt.Value(t, report.Comparison).Nil()
		gt.A(t, report.Results).Length(3)

		gt.Value(t, report.Results[0].Requirement).Equal("Store locator shows opening hours")
		gt.Value(t, report.Results[0].Classification).Equal(types.ClassificationOOTBMatch)
		gt.Value(t, report.Results[0].Citations[0].SourceID).Equal("b.md")
		gt.Value(t, report.Results[1].Requirement).Equal("Gift cards can be redeemed at checkout")
		gt.Value(t, report.Results[1].Classification).Equal(types.ClassificationOOTBMatch)
		gt.Value(t, report.Results[1].Citations[0].SourceID).Equal("a.md")
		gt.Value(t, report.Results[2].Requirement).Equal("Subscription boxes with monthly billing")
	})

	t.Run("explicit requirements win over text", func(t *testing.T) {
		uc, _, _ := setup(t)
		seed(t, uc, "apple pay at checkout")

		report, err := uc.Analyze(ctx, usecase.AnalyzeInput{
			Text:         "- ignored requirement line",
			Requirements: []string{"  apple pay at checkout ", "", "  "},
			TopK:         1,
		})
		gt.NoError(t, err).Required()
		gt.A(t, report.Results).Length(1)
		gt.Value(t, report.Results[0].Requirement).Equal("apple pay at checkout")
	})

	t.Run("empty input is rejected before any provider call", func(t *testing.T) {
		uc, _, embedder := setup(t)

		_, err := uc.Analyze(ctx, usecase.AnalyzeInput{Text: "\n - \n ok\n"})
		gt.Error(t, err).Is(model.ErrEmptyRequirements)
		_, err = uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{" "}})
		gt.Error(t, err).Is(model.ErrEmptyRequirements)
		gt.Number(t, embedder.Calls()).Equal(0)
	})

	t.Run("negative top_k", func(t *testing.T) {
		uc, _, embedder := setup(t)
		_, err := uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{"gift cards"}, TopK: -1})
		gt.Error(t, err).Is(model.ErrInvalidInput)
		gt.Number(t, embedder.Calls()).Equal(0)
	})

	t.Run("missing baseline fails before classification", func(t *testing.T) {
		uc, _, embedder := setup(t)
		_, err := uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{"gift cards"}, BaselineName: "release-1"})
		gt.Error(t, err).Is(model.ErrBaselineNotFound)
		gt.Number(t, embedder.Calls()).Equal(0)
	})

	t.Run("unusable baseline name to save", func(t *testing.T) {
		uc, _, embedder := setup(t)
		_, err := uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{"gift cards"}, SaveBaseline: "///"})
		gt.Error(t, err).Is(model.ErrInvalidBaselineName)
		gt.Number(t, embedder.Calls()).Equal(0)
	})

	t.Run("embedding mismatch propagates", func(t *testing.T) {
		uc, _, embedder := setup(t)
		embedder.Err = model.ErrEmbeddingMismatch
		_, err := uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{"gift cards"}})
		gt.Error(t, err).Is(model.ErrEmbeddingMismatch)
	})

	t.Run("judge verdict is used", func(t *testing.T) {
		judge := &testutil.StaticJudge{Answer: "Custom Dev Required | 0.9 | needs a subscription engine"}
		uc, _, _ := setup(t, usecase.WithJudge(judge))
		seed(t, uc, "subscription boxes are billed monthly")

		report, err := uc.Analyze(ctx, usecase.AnalyzeInput{Requirements: []string{"subscription boxes are billed monthly"}})
		gt.NoError(t, err).Required()
		gt.Value(t, report.Results[0].Classification).Equal(types.ClassificationCustomDev)
		gt.Value(t, report.Results[0].Rationale).Equal("needs a subscription engine")
		gt.Number(t, report.Results[0].Confidence).Equal(0.95)
	})
}

func TestAnalyzeWithBaseline(t *testing.T) {
	ctx := context.Background()
	notified := make(chan *model.AnalysisReport, 1)
	uc, _, _ := setup(t, usecase.WithNotifier(notifierFunc(func(ctx context.Context, report *model.AnalysisReport) error {
		time.Sleep(50 * time.Millisecond)
		notified <- report
		return nil
	})))
	seed(t, uc, "gift cards can be redeemed at checkout", "store locator shows opening hours")

	first, err := uc.Analyze(ctx, usecase.AnalyzeInput{
		Requirements: []string{"Gift cards can be redeemed at checkout", "Store locator shows opening hours"},
		SaveBaseline: "release 1",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, first.Comparison).Nil()

	saved, err := uc.GetBaseline(ctx, "release_1")
	gt.NoError(t, err).Required()
	gt.A(t, saved.Items).Length(2)
	gt.Value(t, saved.Items[0].RequirementNorm).Equal("gift cards can be redeemed at checkout")

	t.Run("same requirements show no drift", func(t *testing.T) {
		report, err := uc.Analyze(ctx, usecase.AnalyzeInput{
			Requirements: []string{"Store locator shows opening hours", "gift cards can be redeemed at checkout!"},
			BaselineName: "release 1",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, report.Comparison.BaselineName).Equal("release_1")
		gt.Number(t, report.Comparison.Summary.Unchanged).Equal(2)
		gt.Bool(t, report.Comparison.Summary.HasDrift()).False()
		gt.Value(t, report.Results[0].BaselineStatus).Equal(types.BaselineStatusUnchanged)
	})

	t.Run("drift is reported and announced", func(t *testing.T) {
		report, err := uc.Analyze(ctx, usecase.AnalyzeInput{
			Requirements: []string{"Gift cards can be redeemed at checkout", "Subscription boxes with monthly billing"},
			BaselineName: "release_1",
		})
		gt.NoError(t, err).Required()
		gt.Number(t, report.Comparison.Summary.Unchanged).Equal(1)
		gt.Number(t, report.Comparison.Summary.Added).Equal(1)
		gt.Number(t, report.Comparison.Summary.Removed).Equal(1)
		gt.Value(t, report.Comparison.Removed[0].Requirement).Equal("Store locator shows opening hours")
		gt.Value(t, report.Results[1].BaselineStatus).Equal(types.BaselineStatusNew)

		uc.Wait()
		select {
		case got := <-notified:
			gt.Value(t, got.ID).Equal(report.ID)
		default:
			t.Fatal("drift notification was not sent before Wait returned")
		}
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := setup(t)
	seed(t, uc, "gift cards can be redeemed at checkout", "store locator shows opening hours", "apple pay")

	hits, err := uc.Query(ctx, "store locator shows opening hours", 2)
	gt.NoError(t, err).Required()
	gt.A(t, hits).Length(2)
	gt.Value(t, hits[0].Chunk.SourceID).Equal("b.md")

	hits, err = uc.Query(ctx, "gift cards", 0)
	gt.NoError(t, err).Required()
	gt.A(t, hits).Length(3)

	_, err = uc.Query(ctx, "   ", 3)
	gt.Error(t, err).Is(model.ErrInvalidInput)
	_, err = uc.Query(ctx, "gift cards", -2)
	gt.Error(t, err).Is(model.ErrInvalidInput)
}

func TestBaselines(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := setup(t, usecase.WithClock(func() time.Time { return fixedNow }))
	results := []*model.GapResult{
		{Requirement: "Gift cards", Classification: types.ClassificationOOTBMatch, Confidence: 0.9},
	}

	_, err := uc.SaveBaseline(ctx, "q1", nil)
	gt.Error(t, err).Is(model.ErrEmptyRequirements)
	_, err = uc.SaveBaseline(ctx, "   ", results)
	gt.Error(t, err).Is(model.ErrInvalidBaselineName)

	b, err := uc.SaveBaseline(ctx, "q1 plan", results)
	gt.NoError(t, err).Required()
	gt.Value(t, b.Name).Equal("q1_plan")
	gt.Value(t, b.CreatedAt).Equal(fixedNow)

	list, err := uc.ListBaselines(ctx)
	gt.NoError(t, err).Required()
	gt.A(t, list).Length(1)
	gt.Value(t, list[0].Name).Equal("q1_plan")
	gt.Number(t, list[0].Items).Equal(1)

	gt.NoError(t, uc.DeleteBaseline(ctx, "q1 plan")).Required()
	gt.Error(t, uc.DeleteBaseline(ctx, "q1 plan")).Is(model.ErrBaselineNotFound)
	_, err = uc.GetBaseline(ctx, "q1_plan")
	gt.Error(t, err).Is(model.ErrBaselineNotFound)
}
