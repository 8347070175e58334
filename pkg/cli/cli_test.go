package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/cli"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/repository/file"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
)

func init() {
	color.NoColor = true
}

func TestRenderReport(t *testing.T) {
	report := &model.AnalysisReport{
		ID:        "a1",
		CreatedAt: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Results: []*model.GapResult{
			{
				Requirement:    "Apple Pay at checkout",
				Classification: types.ClassificationOOTBMatch,
				Confidence:     0.93,
				Similarity:     0.912,
				Rationale:      "Checkout supports Apple Pay",
				Citations: []model.Citation{
					{SourceID: "acme/docs/checkout.md", URL: "https://example.com/checkout", ChunkIndex: 2, Score: 0.912},
				},
				BaselineStatus:         types.BaselineStatusChanged,
				BaselineClassification: types.ClassificationPartialMatch,
			},
			{
				Requirement:         "Loyalty points",
				Classification:      types.ClassificationOpenQuestion,
				Confidence:          0.4,
				Degraded:            "judge unavailable",
				ClarifyingQuestions: []string{"Which tiers?"},
				BaselineStatus:      types.BaselineStatusNew,
			},
		},
		Comparison: &model.BaselineComparison{
			BaselineName: "r1",
			Summary:      model.ComparisonSummary{Added: 1, Changed: 1, Removed: 1},
			Removed:      []model.RemovedItem{{Requirement: "Gift wrap", Classification: types.ClassificationCustomDev}},
		},
	}

	var buf bytes.Buffer
	gt.NoError(t, cli.RenderReport(&buf, report)).Required()
	out := buf.String()

	gt.String(t, out).Contains("1. Apple Pay at checkout")
	gt.String(t, out).Contains("OOTB Match (confidence 0.93, similarity 0.912) [changed]")
	gt.String(t, out).Contains("was Partial Match")
	gt.String(t, out).Contains("https://example.com/checkout#2")
	gt.String(t, out).Contains("degraded: judge unavailable")
	gt.String(t, out).Contains("? Which tiers?")
	gt.String(t, out).Contains("Open Question: 1")
	gt.String(t, out).Contains("Custom Dev Required: 0")
	gt.String(t, out).Contains("Baseline r1: 1 added, 1 changed, 0 unchanged, 1 removed")
	gt.String(t, out).Contains("removed: Gift wrap (Custom Dev Required)")
}

func TestRenderHits(t *testing.T) {
	var buf bytes.Buffer
	gt.NoError(t, cli.RenderHits(&buf, nil)).Required()
	gt.String(t, buf.String()).Equal("no matching chunks\n")

	buf.Reset()
	hits := []*model.ScoredChunk{{
		Chunk:    &model.Chunk{SourceID: "a.md", Index: 1, Title: "Stores", Text: "store locator"},
		Distance: 0.25,
		Score:    0.75,
	}}
	gt.NoError(t, cli.RenderHits(&buf, hits)).Required()
	gt.String(t, buf.String()).Contains("1. a.md#1  score 0.750  similarity 0.750")
	gt.String(t, buf.String()).Contains("store locator")
}

func TestRenderStatus(t *testing.T) {
	st := &usecase.IndexStatus{
		Collection: "chunks_gemini_text_embedding_004_768",
		Embedding:  model.EmbeddingFingerprint{Provider: "gemini", Model: "text-embedding-004", Dimension: 768},
		Chunks:     42,
	}

	var buf bytes.Buffer
	gt.NoError(t, cli.RenderStatus(&buf, st, nil)).Required()
	gt.String(t, buf.String()).Contains("chunks_gemini_text_embedding_004_768  gemini/text-embedding-004 (768 dims)")
	gt.String(t, buf.String()).Contains("chunks: 42")
	gt.String(t, buf.String()).NotContains("not indexed")

	buf.Reset()
	gt.NoError(t, cli.RenderStatus(&buf, st, []*model.Chunk{})).Required()
	gt.String(t, buf.String()).Contains("document is not indexed")

	buf.Reset()
	chunks := []*model.Chunk{
		{ID: model.NewChunkID(model.SourceKindLocal, "a.md", 0), Index: 0, Text: "gift cards"},
		{ID: model.NewChunkID(model.SourceKindLocal, "a.md", 1), Index: 1, Text: "store locator"},
	}
	gt.NoError(t, cli.RenderStatus(&buf, st, chunks)).Required()
	gt.String(t, buf.String()).Contains("#0  local:a.md:0\n   gift cards")
	gt.String(t, buf.String()).Contains("#1  local:a.md:1\n   store locator")

	out := cli.ToStatusOutput(st, chunks)
	gt.Number(t, out.Chunks).Equal(42)
	gt.A(t, out.Document).Length(2)
	gt.Value(t, out.Document[1].ID).Equal(model.ChunkID("local:a.md:1"))
}

func TestRun_StatusRequiresBothDocumentFlags(t *testing.T) {
	ctx := context.Background()
	base := []string{"gapcheck", "--log-output", filepath.Join(t.TempDir(), "log.txt"), "status"}

	gt.Error(t, cli.Run(ctx, append(base, "--source", "local"), "test")).Is(model.ErrInvalidInput)
	gt.Error(t, cli.Run(ctx, append(base, "--source-id", "a.md"), "test")).Is(model.ErrInvalidInput)
	gt.Error(t, cli.Run(ctx, append(base, "--format", "yaml"), "test"))
}

func TestReadInput(t *testing.T) {
	text, err := cli.ReadInput("-", strings.NewReader("- Gift cards\n"))
	gt.NoError(t, err).Required()
	gt.Value(t, text).Equal("- Gift cards\n")

	path := filepath.Join(t.TempDir(), "reqs.md")
	gt.NoError(t, os.WriteFile(path, []byte("1. Wishlists"), 0o600)).Required()
	text, err = cli.ReadInput(path, strings.NewReader("ignored"))
	gt.NoError(t, err).Required()
	gt.Value(t, text).Equal("1. Wishlists")

	_, err = cli.ReadInput(filepath.Join(t.TempDir(), "none.md"), nil)
	gt.Error(t, err)
}

func TestValidateFormat(t *testing.T) {
	gt.NoError(t, cli.ValidateFormat("text"))
	gt.NoError(t, cli.ValidateFormat("json"))
	gt.Error(t, cli.ValidateFormat("yaml")).Is(model.ErrInvalidInput)
}

func TestGetIndexConfig(t *testing.T) {
	cfg := cli.GetIndexConfig("test_chunks", 768)
	gt.A(t, cfg.Collections).Length(1)
	gt.Value(t, cfg.Collections[0].Name).Equal("test_chunks")

	var dim int
	for _, idx := range cfg.Collections[0].Indexes {
		for _, f := range idx.Fields {
			if f.Vector != nil {
				gt.Value(t, f.Path).Equal("Embedding")
				dim = f.Vector.Dimension
			}
		}
	}
	gt.Number(t, dim).Equal(768)
}

func TestRun_BaselineCommands(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := file.NewBaselineStore(dir)
	gt.NoError(t, err).Required()
	gt.NoError(t, store.Put(ctx, &model.Baseline{
		Name:  "release_1",
		Items: []model.BaselineItem{{Requirement: "Gift cards", RequirementNorm: "gift cards"}},
	})).Required()

	base := []string{"gapcheck", "--log-output", filepath.Join(t.TempDir(), "log.txt"), "baseline", "--baseline-dir", dir}

	gt.NoError(t, cli.Run(ctx, append(base, "list"), "test"))
	gt.NoError(t, cli.Run(ctx, append(base, "show", "release 1"), "test"))
	gt.NoError(t, cli.Run(ctx, append(base, "delete", "release_1"), "test"))

	_, err = store.Get(ctx, "release_1")
	gt.Error(t, err).Is(model.ErrBaselineNotFound)

	gt.Error(t, cli.Run(ctx, append(base, "show", "release_1"), "test")).Is(model.ErrBaselineNotFound)
	gt.Error(t, cli.Run(ctx, append(base, "show"), "test")).Is(model.ErrInvalidInput)
}
