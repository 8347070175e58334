package model

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisID is a UUID-based identifier for an analysis run
type AnalysisID string

// NewAnalysisID generates a new UUID v4 AnalysisID
func NewAnalysisID() AnalysisID {
	return AnalysisID(uuid.New().String())
}

// AnalysisReport is the output of analyzing a list of requirements
type AnalysisReport struct {
	ID         AnalysisID          `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	Results    []*GapResult        `json:"results"`
	Comparison *BaselineComparison `json:"comparison,omitempty"`
}

// IngestReport counts what an ingestion run did
type IngestReport struct {
	Documents int `json:"documents"`
	Skipped   int `json:"skipped"`
	Ingested  int `json:"ingested"`
	Chunks    int `json:"chunks"`
	Failed    int `json:"failed"`
}

// Add accumulates the counts of other into r
func (r *IngestReport) Add(other *IngestReport) {
	if other == nil {
		return
	}
	r.Documents += other.Documents
	r.Skipped += other.Skipped
	r.Ingested += other.Ingested
	r.Chunks += other.Chunks
	r.Failed += other.Failed
}
