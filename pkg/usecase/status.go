package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

// IndexStatus describes the vector index the use cases are bound to
type IndexStatus struct {
	Collection string                     `json:"collection"`
	Embedding  model.EmbeddingFingerprint `json:"embedding"`
	Chunks     int                        `json:"chunks"`
}

func (uc *UseCases) IndexStatus(ctx context.Context) (*IndexStatus, error) {
	n, err := uc.repo.Chunk().Count(ctx)
	if err != nil {
		return nil, err
	}
	return &IndexStatus{
		Collection: uc.repo.Chunk().Collection(),
		Embedding:  uc.embedder.Fingerprint(),
		Chunks:     n,
	}, nil
}

// DocumentChunks returns the indexed chunks of one document in index order
func (uc *UseCases) DocumentChunks(ctx context.Context, source model.SourceKind, sourceID string) ([]*model.Chunk, error) {
	switch source {
	case model.SourceKindNotion, model.SourceKindGitHub, model.SourceKindLocal:
	default:
		return nil, goerr.Wrap(model.ErrInvalidInput, "unknown source kind", goerr.V("source", source))
	}
	if strings.TrimSpace(sourceID) == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "source id is required")
	}
	return uc.repo.Chunk().ListByDocument(ctx, source, sourceID)
}
