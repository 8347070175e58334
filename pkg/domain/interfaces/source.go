package interfaces

import (
	"context"
	"iter"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

// DocumentSource yields reference documents to ingest
type DocumentSource interface {
	// Name identifies the source in logs and reports
	Name() string

	Documents(ctx context.Context) iter.Seq2[*model.Document, error]
}

// DriftNotifier announces baseline drift to humans
type DriftNotifier interface {
	NotifyDrift(ctx context.Context, report *model.AnalysisReport) error
}
