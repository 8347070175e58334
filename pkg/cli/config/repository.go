package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/repository/firestore"
	"github.com/secmon-lab/gapcheck/pkg/repository/memory"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Repository holds CLI flags for the vector index backend
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collection       string
	collectionPrefix string
}

func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Category:    "repository",
			Usage:       "Vector index backend [firestore|memory]",
			Value:       "firestore",
			Sources:     cli.EnvVars("GAPCHECK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Category:    "repository",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Sources:     cli.EnvVars("GAPCHECK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Category:    "repository",
			Usage:       "Firestore Database ID",
			Sources:     cli.EnvVars("GAPCHECK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "collection",
			Category:    "repository",
			Usage:       "Chunk collection name (derived from the embedding model if empty)",
			Sources:     cli.EnvVars("GAPCHECK_COLLECTION"),
			Destination: &r.collection,
		},
		&cli.StringFlag{
			Name:        "collection-prefix",
			Category:    "repository",
			Usage:       "Prefix added to every Firestore collection name",
			Sources:     cli.EnvVars("GAPCHECK_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.String("project_id", r.projectID),
		slog.String("database_id", r.databaseID),
		slog.String("collection", r.collection),
		slog.String("collection_prefix", r.collectionPrefix),
	)
}

func (r *Repository) Backend() string {
	return r.backend
}

func (r *Repository) ProjectID() string {
	return r.projectID
}

func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionName returns the chunk collection used for fp, including the prefix
func (r *Repository) CollectionName(fp model.EmbeddingFingerprint) string {
	name := r.collection
	if name == "" {
		name = fp.CollectionName()
	}
	return r.collectionPrefix + name
}

// Configure opens the backend with its chunk collection bound to fp.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context, fp model.EmbeddingFingerprint) (interfaces.Repository, error) {
	switch r.backend {
	case "firestore":
		if r.projectID == "" {
			return nil, goerr.Wrap(model.ErrInvalidConfig, "firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, fp,
			firestore.WithCollectionPrefix(r.collectionPrefix),
			firestore.WithCollection(r.collection),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
			"collection", repo.Chunk().Collection(),
		)
		return repo, nil

	case "memory":
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(fp, memory.WithCollection(r.collection)), nil

	default:
		return nil, goerr.Wrap(ErrUnknownBackend, "invalid repository backend", goerr.V("backend", r.backend))
	}
}
