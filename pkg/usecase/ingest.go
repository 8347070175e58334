package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/secmon-lab/gapcheck/pkg/utils/errutil"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DocumentOutcome tells what IngestDocument did with a document
type DocumentOutcome struct {
	Skipped bool
	Chunks  int
}

// abortsIngestion reports errors that would fail every other document the same way
func abortsIngestion(err error) bool {
	return errors.Is(err, model.ErrEmbeddingMismatch) ||
		errors.Is(err, model.ErrInvalidConfig) ||
		errors.Is(err, model.ErrProviderRejected) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IngestDocument chunks, embeds and stores one document unless the same content is already indexed.
// Calls for the same document are serialized.
func (uc *UseCases) IngestDocument(ctx context.Context, doc *model.Document) (*DocumentOutcome, error) {
	if doc == nil || doc.Source == "" || doc.SourceID == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "document source and source ID are required")
	}

	unlock := uc.locks.Lock(string(doc.Source) + ":" + doc.SourceID)
	defer unlock()

	chunks := uc.repo.Chunk()
	hash := doc.ContentHash()

	exists, err := chunks.ExistsWithHash(ctx, doc.Source, doc.SourceID, hash)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to check content hash",
			goerr.V("source", doc.Source),
			goerr.V("source_id", doc.SourceID))
	}
	if exists {
		return &DocumentOutcome{Skipped: true}, nil
	}

	built := uc.chunker.Build(doc)
	if len(built) == 0 {
		if err := chunks.DeleteByDocument(ctx, doc.Source, doc.SourceID); err != nil {
			return nil, goerr.Wrap(err, "failed to delete chunks of empty document",
				goerr.V("source", doc.Source),
				goerr.V("source_id", doc.SourceID))
		}
		return &DocumentOutcome{}, nil
	}

	texts := make([]string, len(built))
	for i, c := range built {
		texts[i] = c.Text
	}
	embeddings, err := uc.embedder.Embed(ctx, texts, types.TaskRetrievalDocument)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed chunks",
			goerr.V("source", doc.Source),
			goerr.V("source_id", doc.SourceID),
			goerr.V("chunks", len(built)))
	}

	if err := chunks.ReplaceDocument(ctx, doc.Source, doc.SourceID, built, embeddings); err != nil {
		return nil, goerr.Wrap(err, "failed to store chunks",
			goerr.V("source", doc.Source),
			goerr.V("source_id", doc.SourceID))
	}

	return &DocumentOutcome{Chunks: len(built)}, nil
}

// IngestSource ingests every document of src with bounded concurrency. A failing document is
// counted and logged; configuration errors stop the run.
func (uc *UseCases) IngestSource(ctx context.Context, src interfaces.DocumentSource) (*model.IngestReport, error) {
	logger := logging.From(ctx).With("source", src.Name())
	report := &model.IngestReport{}
	var mu sync.Mutex
	var abortErr error

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.concurrency)

	for doc, err := range src.Documents(egCtx) {
		if egCtx.Err() != nil {
			break
		}
		if err != nil {
			if abortsIngestion(err) {
				abortErr = err
				break
			}
			mu.Lock()
			report.Failed++
			mu.Unlock()
			errutil.Handle(ctx, err, "failed to read document from source")
			continue
		}

		eg.Go(func() error {
			outcome, err := uc.IngestDocument(egCtx, doc)

			mu.Lock()
			defer mu.Unlock()
			report.Documents++

			if err != nil {
				if abortsIngestion(err) {
					return err
				}
				report.Failed++
				errutil.Handle(ctx, err, "failed to ingest document")
				return nil
			}

			if outcome.Skipped {
				report.Skipped++
				return nil
			}
			report.Ingested++
			report.Chunks += outcome.Chunks
			return nil
		})
	}

	if err := eg.Wait(); err != nil && abortErr == nil {
		abortErr = err
	}
	if abortErr != nil {
		return report, goerr.Wrap(abortErr, "ingestion aborted", goerr.V("source", src.Name()))
	}
	if err := ctx.Err(); err != nil {
		return report, goerr.Wrap(err, "ingestion interrupted", goerr.V("source", src.Name()))
	}

	logger.Info("source ingested",
		"documents", report.Documents,
		"ingested", report.Ingested,
		"skipped", report.Skipped,
		"chunks", report.Chunks,
		"failed", report.Failed)
	return report, nil
}

// IngestAll ingests the configured sources one after another
func (uc *UseCases) IngestAll(ctx context.Context) (*model.IngestReport, error) {
	if len(uc.sources) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "no document sources configured")
	}

	total := &model.IngestReport{}
	for _, src := range uc.sources {
		report, err := uc.IngestSource(ctx, src)
		total.Add(report)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
