package model

import (
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
)

var unsafeBaselineChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SafeBaselineName turns a user supplied baseline name into a storage key
func SafeBaselineName(name string) (string, error) {
	safe := unsafeBaselineChars.ReplaceAllString(strings.TrimSpace(name), "_")
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return "", goerr.Wrap(ErrInvalidBaselineName, "baseline name has no usable characters", goerr.V("name", name))
	}
	return safe, nil
}

// BaselineItem is one classified requirement inside a baseline snapshot
type BaselineItem struct {
	Requirement     string               `json:"requirement"`
	RequirementNorm string               `json:"requirement_norm"`
	Classification  types.Classification `json:"classification"`
	Confidence      float64              `json:"confidence"`
}

// Baseline is a named snapshot of a previous analysis
type Baseline struct {
	Name         string         `json:"name"`
	CreatedAt    time.Time      `json:"created_at"`
	Requirements []string       `json:"requirements"`
	Items        []BaselineItem `json:"items"`
}

// BaselineSummary is a listing entry
type BaselineSummary struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Items     int       `json:"items"`
}

// RemovedItem is a baseline item that no current requirement matched
type RemovedItem struct {
	Requirement    string               `json:"requirement"`
	Classification types.Classification `json:"classification"`
	Confidence     float64              `json:"confidence"`
}

// ComparisonSummary counts results per baseline status
type ComparisonSummary struct {
	Added     int `json:"added"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

// HasDrift reports whether anything differs from the baseline
func (s ComparisonSummary) HasDrift() bool {
	return s.Added > 0 || s.Changed > 0 || s.Removed > 0
}

// BaselineComparison is the outcome of diffing results against a baseline
type BaselineComparison struct {
	BaselineName string            `json:"baseline_name"`
	Results      []*GapResult      `json:"-"`
	Summary      ComparisonSummary `json:"summary"`
	Removed      []RemovedItem     `json:"removed"`
}
