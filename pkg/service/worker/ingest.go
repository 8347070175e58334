package worker

import (
	"context"
	"sync"
	"time"

	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
)

// Ingester runs one ingestion pass over all configured sources
type Ingester interface {
	IngestAll(ctx context.Context) (*model.IngestReport, error)
}

// IngestWorker re-ingests reference documents in the background
//
// Architecture assumptions:
// - Single server instance (no distributed locking)
// - Per-document serialization inside the ingester keeps overlapping passes safe
type IngestWorker struct {
	ingester Ingester
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewIngestWorker creates a worker that runs ingester every interval
func NewIngestWorker(ingester Ingester, interval time.Duration) *IngestWorker {
	return &IngestWorker{
		ingester: ingester,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first pass runs immediately and does not block.
func (w *IngestWorker) Start(ctx context.Context) {
	logging.Default().Info("Ingest worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for the current pass to finish
func (w *IngestWorker) Stop() {
	w.stopOnce.Do(func() {
		logging.Default().Info("Ingest worker stopping")
		close(w.stopCh)
	})
	<-w.doneCh
}

func (w *IngestWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.ingest(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.ingest(ctx)

		case <-w.stopCh:
			logging.Default().Info("Ingest worker received stop signal")
			return

		case <-ctx.Done():
			logging.Default().Info("Ingest worker context cancelled")
			return
		}
	}
}

func (w *IngestWorker) ingest(ctx context.Context) {
	started := time.Now()
	report, err := w.ingester.IngestAll(ctx)
	if err != nil {
		// keep running; next tick retries
		logging.Default().Error("Ingest pass failed (will retry next interval)", "error", err.Error())
		return
	}

	logging.Default().Info("Ingest pass completed",
		"documents", report.Documents,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"chunks", report.Chunks,
		"duration", time.Since(started).String())
}
