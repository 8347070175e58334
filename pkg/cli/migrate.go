package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/cli/config"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var dryRun bool
	var llmCfg config.LLM
	var repoCfg config.Repository

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, llmCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create the Firestore vector index of the chunk collection",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			if repoCfg.ProjectID() == "" {
				return goerr.Wrap(model.ErrInvalidConfig, "firestore-project-id is required")
			}
			fp, err := llmCfg.Fingerprint()
			if err != nil {
				return err
			}
			collection := repoCfg.CollectionName(fp)

			logger.Info("Migrate configuration",
				"projectID", repoCfg.ProjectID(),
				"databaseID", repoCfg.DatabaseID(),
				"collection", collection,
				"dimension", fp.Dimension,
				"dryRun", dryRun)

			indexConfig := getIndexConfig(collection, fp.Dimension)

			client, err := fireconf.NewClient(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID())
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
				plan, err := client.GetMigrationPlan(ctx, indexConfig)
				if err != nil {
					return goerr.Wrap(err, "failed to create migration plan")
				}

				if len(plan.Steps) == 0 {
					logger.Info("No changes required")
					return nil
				}

				for _, step := range plan.Steps {
					logger.Info("Migration step",
						"collection", step.Collection,
						"operation", step.Operation,
						"description", step.Description,
						"destructive", step.Destructive)
				}
				return nil
			}

			logger.Info("Applying migrations")
			if err := client.Migrate(ctx, indexConfig); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

// getIndexConfig returns the indexes of one chunk collection
func getIndexConfig(collection string, dimension int) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collection,
				Indexes: []fireconf.Index{
					// documentQuery: Source ==, SourceID ==
					{
						Fields: []fireconf.IndexField{
							{Path: "Source", Order: fireconf.OrderAscending},
							{Path: "SourceID", Order: fireconf.OrderAscending},
						},
					},
					// nearest neighbour search
					{
						Fields: []fireconf.IndexField{
							{
								Path: "Embedding",
								Vector: &fireconf.VectorConfig{
									Dimension: dimension,
								},
							},
						},
					},
				},
			},
		},
	}
}
