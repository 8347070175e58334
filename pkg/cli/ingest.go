package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdIngest() *cli.Command {
	var appCfg appConfig

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Chunk, embed and index the configured documentation sources",
		Flags:   appCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			if !appCfg.sources.IsConfigured() {
				return goerr.Wrap(model.ErrInvalidConfig, "--sources or --docs-dir is required")
			}

			uc, cleanup, err := appCfg.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			report, err := uc.IngestAll(ctx)
			if report != nil {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					logging.Default().Warn("failed to write report", "error", encErr)
				}
			}
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				logging.Default().Warn("Some documents failed to ingest", "failed", report.Failed)
			}

			st, err := uc.IndexStatus(ctx)
			if err != nil {
				return err
			}
			logging.Default().Info("Index updated", "collection", st.Collection, "chunks", st.Chunks)
			return nil
		},
	}
}
