package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/repository/file"
	"github.com/secmon-lab/gapcheck/pkg/repository/gcs"
	"github.com/urfave/cli/v3"
)

// Baseline selects where baselines are stored
type Baseline struct {
	backend string
	dir     string
	bucket  string
	prefix  string
}

func (x *Baseline) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "baseline-backend",
			Category:    "baseline",
			Usage:       "Baseline store [file|gcs|repository]",
			Value:       "file",
			Sources:     cli.EnvVars("GAPCHECK_BASELINE_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "baseline-dir",
			Category:    "baseline",
			Usage:       "Directory of baseline JSON files (file backend)",
			Value:       "baselines",
			Sources:     cli.EnvVars("GAPCHECK_BASELINE_DIR"),
			Destination: &x.dir,
		},
		&cli.StringFlag{
			Name:        "baseline-bucket",
			Category:    "baseline",
			Usage:       "Cloud Storage bucket (gcs backend)",
			Sources:     cli.EnvVars("GAPCHECK_BASELINE_BUCKET"),
			Destination: &x.bucket,
		},
		&cli.StringFlag{
			Name:        "baseline-prefix",
			Category:    "baseline",
			Usage:       "Object name prefix (gcs backend)",
			Value:       "baselines/",
			Sources:     cli.EnvVars("GAPCHECK_BASELINE_PREFIX"),
			Destination: &x.prefix,
		},
	}
}

func (x Baseline) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", x.backend),
		slog.String("dir", x.dir),
		slog.String("bucket", x.bucket),
		slog.String("prefix", x.prefix),
	)
}

// NeedsRepository reports whether baselines live in the vector index backend
func (x *Baseline) NeedsRepository() bool {
	return x.backend == "repository"
}

// Configure returns the baseline store and a function releasing it. The repository backend
// reuses repo's own baseline store.
func (x *Baseline) Configure(ctx context.Context, repo interfaces.Repository) (interfaces.BaselineRepository, func(), error) {
	switch x.backend {
	case "file":
		store, err := file.NewBaselineStore(x.dir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil

	case "gcs":
		store, err := gcs.NewBaselineStore(ctx, x.bucket, gcs.WithPrefix(x.prefix))
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case "repository":
		return repo.Baseline(), func() {}, nil

	default:
		return nil, nil, goerr.Wrap(ErrUnknownBackend, "invalid baseline backend", goerr.V("backend", x.backend))
	}
}
