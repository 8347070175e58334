package model

import (
	"math"

	"github.com/secmon-lab/gapcheck/pkg/domain/types"
)

// Citation points at a retrieved chunk that backed a classification. Chunk text is never included.
type Citation struct {
	Source     SourceKind `json:"source"`
	SourceID   string     `json:"source_id"`
	Title      string     `json:"title,omitempty"`
	URL        string     `json:"url,omitempty"`
	ChunkIndex int        `json:"chunk_index"`
	Score      float64    `json:"score"`
}

// GapResult is the classification of a single requirement
type GapResult struct {
	Requirement         string               `json:"requirement"`
	Classification      types.Classification `json:"classification"`
	Confidence          float64              `json:"confidence"`
	Similarity          float64              `json:"similarity"`
	JudgeConfidence     *float64             `json:"judge_confidence,omitempty"`
	Rationale           string               `json:"rationale"`
	Degraded            string               `json:"degraded,omitempty"`
	Citations           []Citation           `json:"citations"`
	ClarifyingQuestions []string             `json:"clarifying_questions,omitempty"`

	// Filled only when compared against a baseline
	BaselineStatus         types.BaselineStatus `json:"baseline_status,omitempty"`
	BaselineRequirement    string               `json:"baseline_requirement,omitempty"`
	BaselineClassification types.Classification `json:"baseline_classification,omitempty"`
	BaselineConfidence     *float64             `json:"baseline_confidence,omitempty"`
	BaselineSimilarity     *float64             `json:"baseline_similarity,omitempty"`
}

// Copy returns a deep copy of the result
func (r *GapResult) Copy() *GapResult {
	c := *r
	if r.JudgeConfidence != nil {
		v := *r.JudgeConfidence
		c.JudgeConfidence = &v
	}
	if r.BaselineConfidence != nil {
		v := *r.BaselineConfidence
		c.BaselineConfidence = &v
	}
	if r.BaselineSimilarity != nil {
		v := *r.BaselineSimilarity
		c.BaselineSimilarity = &v
	}
	if r.Citations != nil {
		c.Citations = append([]Citation(nil), r.Citations...)
	}
	if r.ClarifyingQuestions != nil {
		c.ClarifyingQuestions = append([]string(nil), r.ClarifyingQuestions...)
	}
	return &c
}

// Round3 rounds v to three decimal places
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
