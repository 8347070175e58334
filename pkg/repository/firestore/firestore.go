package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
)

type Firestore struct {
	client   *firestore.Client
	chunk    *chunkRepository
	baseline *baselineRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every collection name, mainly to isolate test runs
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.chunk.collectionPrefix = prefix
		f.baseline.collectionPrefix = prefix
	}
}

// WithCollection overrides the chunk collection name derived from the embedding fingerprint.
// The fingerprint is still recorded and checked against the collection metadata.
func WithCollection(name string) Option {
	return func(f *Firestore) {
		if name != "" {
			f.chunk.collection = name
		}
	}
}

// New connects to Firestore and binds the chunk collection to fp. It fails with
// model.ErrEmbeddingMismatch when the collection was built with another embedding space.
func New(ctx context.Context, projectID, databaseID string, fp model.EmbeddingFingerprint, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:   client,
		chunk:    newChunkRepository(client, fp),
		baseline: newBaselineRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	if err := f.chunk.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	return f, nil
}

func (f *Firestore) Chunk() interfaces.ChunkRepository {
	return f.chunk
}

func (f *Firestore) Baseline() interfaces.BaselineRepository {
	return f.baseline
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
