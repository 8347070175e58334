package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var classificationColors = map[types.Classification]*color.Color{
	types.ClassificationOOTBMatch:    color.New(color.FgGreen, color.Bold),
	types.ClassificationPartialMatch: color.New(color.FgYellow, color.Bold),
	types.ClassificationCustomDev:    color.New(color.FgRed, color.Bold),
	types.ClassificationOpenQuestion: color.New(color.FgMagenta, color.Bold),
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON:
		return nil
	default:
		return goerr.Wrap(model.ErrInvalidInput, "unknown output format", goerr.V("format", format))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return goerr.Wrap(err, "failed to encode output")
	}
	return nil
}

func label(c types.Classification) string {
	if clr, ok := classificationColors[c]; ok {
		return clr.Sprint(string(c))
	}
	return string(c)
}

// renderReport writes a human readable report
func renderReport(w io.Writer, report *model.AnalysisReport) error {
	counts := make(map[types.Classification]int)
	var b strings.Builder

	for i, r := range report.Results {
		counts[r.Classification]++

		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Requirement)
		fmt.Fprintf(&b, "   %s (confidence %.2f, similarity %.3f)", label(r.Classification), r.Confidence, r.Similarity)
		if r.BaselineStatus != "" {
			fmt.Fprintf(&b, " [%s]", r.BaselineStatus)
		}
		b.WriteString("\n")

		if r.Rationale != "" {
			fmt.Fprintf(&b, "   %s\n", r.Rationale)
		}
		if r.Degraded != "" {
			fmt.Fprintf(&b, "   %s %s\n", color.YellowString("degraded:"), r.Degraded)
		}
		if r.BaselineStatus == types.BaselineStatusChanged {
			fmt.Fprintf(&b, "   was %s", r.BaselineClassification)
			if r.BaselineRequirement != "" && r.BaselineRequirement != r.Requirement {
				fmt.Fprintf(&b, " as %q", r.BaselineRequirement)
			}
			b.WriteString("\n")
		}
		for _, c := range r.Citations {
			ref := c.URL
			if ref == "" {
				ref = c.SourceID
			}
			fmt.Fprintf(&b, "   - %s#%d (%.3f)\n", ref, c.ChunkIndex, c.Score)
		}
		for _, q := range r.ClarifyingQuestions {
			fmt.Fprintf(&b, "   ? %s\n", q)
		}
	}

	b.WriteString("\n")
	for _, c := range types.AllClassifications() {
		fmt.Fprintf(&b, "%s: %d\n", c, counts[c])
	}

	if cmp := report.Comparison; cmp != nil {
		s := cmp.Summary
		fmt.Fprintf(&b, "\nBaseline %s: %d added, %d changed, %d unchanged, %d removed\n",
			cmp.BaselineName, s.Added, s.Changed, s.Unchanged, s.Removed)
		for _, r := range cmp.Removed {
			fmt.Fprintf(&b, "   - removed: %s (%s)\n", r.Requirement, r.Classification)
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return goerr.Wrap(err, "failed to write report")
	}
	return nil
}

// renderHits writes retrieval results of the query command
func renderHits(w io.Writer, hits []*model.ScoredChunk) error {
	var b strings.Builder
	for i, h := range hits {
		ref := h.Chunk.URL
		if ref == "" {
			ref = h.Chunk.SourceID
		}
		fmt.Fprintf(&b, "%d. %s#%d  score %.3f  similarity %.3f\n", i+1, ref, h.Chunk.Index, h.Score, h.Similarity())
		if h.Chunk.Title != "" {
			fmt.Fprintf(&b, "   %s\n", color.New(color.Bold).Sprint(h.Chunk.Title))
		}
		fmt.Fprintf(&b, "   %s\n", h.Chunk.Text)
	}
	if len(hits) == 0 {
		b.WriteString("no matching chunks\n")
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return goerr.Wrap(err, "failed to write results")
	}
	return nil
}
