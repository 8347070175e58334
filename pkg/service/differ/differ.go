// Package differ compares a fresh analysis with a saved baseline snapshot.
package differ

import (
	"time"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/service/lexical"
)

// MatchThreshold is the minimum token-set similarity for a requirement to count as a changed version
// of a baseline item
const MatchThreshold = 0.6

type candidate struct {
	item     model.BaselineItem
	norm     string
	tokens   lexical.TokenSet
	consumed bool
}

// Compare annotates copies of results with their baseline status and reports baseline items
// nothing matched. Exact normalized matches are taken first, in result order; the remaining
// results then greedily take the best unconsumed item by Jaccard similarity.
func Compare(results []*model.GapResult, baseline *model.Baseline) *model.BaselineComparison {
	candidates := make([]*candidate, len(baseline.Items))
	for i, item := range baseline.Items {
		norm := item.RequirementNorm
		if norm == "" {
			norm = lexical.Normalize(item.Requirement)
		}
		candidates[i] = &candidate{
			item:   item,
			norm:   norm,
			tokens: lexical.Tokenize(item.Requirement),
		}
	}

	out := make([]*model.GapResult, len(results))
	for i, r := range results {
		out[i] = r.Copy()
	}

	matched := make([]bool, len(out))
	for i, r := range out {
		norm := lexical.Normalize(r.Requirement)
		for _, c := range candidates {
			if c.consumed || c.norm != norm {
				continue
			}
			c.consumed = true
			matched[i] = true
			annotate(r, types.BaselineStatusUnchanged, c.item, 1.0)
			break
		}
	}

	for i, r := range out {
		if matched[i] {
			continue
		}

		tokens := lexical.Tokenize(r.Requirement)
		var best *candidate
		bestScore := 0.0
		for _, c := range candidates {
			if c.consumed {
				continue
			}
			// strict comparison keeps the earliest item on ties
			if score := lexical.Jaccard(tokens, c.tokens); best == nil || score > bestScore {
				best, bestScore = c, score
			}
		}

		if best != nil && bestScore >= MatchThreshold {
			best.consumed = true
			annotate(r, types.BaselineStatusChanged, best.item, model.Round3(bestScore))
			continue
		}
		r.BaselineStatus = types.BaselineStatusNew
	}

	cmp := &model.BaselineComparison{
		BaselineName: baseline.Name,
		Results:      out,
		Removed:      []model.RemovedItem{},
	}
	for _, r := range out {
		switch r.BaselineStatus {
		case types.BaselineStatusUnchanged:
			cmp.Summary.Unchanged++
		case types.BaselineStatusChanged:
			cmp.Summary.Changed++
		case types.BaselineStatusNew:
			cmp.Summary.Added++
		}
	}
	for _, c := range candidates {
		if c.consumed {
			continue
		}
		cmp.Removed = append(cmp.Removed, model.RemovedItem{
			Requirement:    c.item.Requirement,
			Classification: c.item.Classification,
			Confidence:     c.item.Confidence,
		})
	}
	cmp.Summary.Removed = len(cmp.Removed)

	return cmp
}

func annotate(r *model.GapResult, status types.BaselineStatus, item model.BaselineItem, similarity float64) {
	confidence := item.Confidence
	r.BaselineStatus = status
	r.BaselineRequirement = item.Requirement
	r.BaselineClassification = item.Classification
	r.BaselineConfidence = &confidence
	r.BaselineSimilarity = &similarity
}

// Snapshot builds the baseline saved under name from an analysis
func Snapshot(name string, results []*model.GapResult, now time.Time) *model.Baseline {
	b := &model.Baseline{
		Name:         name,
		CreatedAt:    now,
		Requirements: make([]string, 0, len(results)),
		Items:        make([]model.BaselineItem, 0, len(results)),
	}
	for _, r := range results {
		b.Requirements = append(b.Requirements, r.Requirement)
		b.Items = append(b.Items, model.BaselineItem{
			Requirement:     r.Requirement,
			RequirementNorm: lexical.Normalize(r.Requirement),
			Classification:  r.Classification,
			Confidence:      r.Confidence,
		})
	}
	return b
}
