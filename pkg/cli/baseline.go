package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/cli/config"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// baselineConfig opens the baseline store without contacting the LLM provider
type baselineConfig struct {
	llm      config.LLM
	repo     config.Repository
	baseline config.Baseline
}

func (x *baselineConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.baseline.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	return append(flags, x.llm.Flags()...)
}

func (x *baselineConfig) open(ctx context.Context) (interfaces.BaselineRepository, func(), error) {
	if !x.baseline.NeedsRepository() {
		return x.baseline.Configure(ctx, nil)
	}

	fp, err := x.llm.Fingerprint()
	if err != nil {
		return nil, func() {}, err
	}
	repo, err := x.repo.Configure(ctx, fp)
	if err != nil {
		return nil, func() {}, goerr.Wrap(err, "failed to initialize repository")
	}
	store, closeStore, err := x.baseline.Configure(ctx, repo)
	if err != nil {
		_ = repo.Close()
		return nil, func() {}, err
	}
	return store, func() {
		closeStore()
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}, nil
}

func baselineName(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", goerr.Wrap(model.ErrInvalidInput, "exactly one baseline name is required")
	}
	return model.SafeBaselineName(c.Args().First())
}

func cmdBaseline() *cli.Command {
	var cfg baselineConfig
	var format string

	formatFlag := &cli.StringFlag{
		Name:        "format",
		Aliases:     []string{"f"},
		Usage:       "Output format [text|json]",
		Value:       formatText,
		Destination: &format,
	}

	return &cli.Command{
		Name:    "baseline",
		Aliases: []string{"b"},
		Usage:   "Manage saved analysis baselines",
		Flags:   cfg.Flags(),
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved baselines",
				Flags: []cli.Flag{formatFlag},
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := validateFormat(format); err != nil {
						return err
					}
					store, closer, err := cfg.open(ctx)
					if err != nil {
						return err
					}
					defer closer()

					summaries, err := store.List(ctx)
					if err != nil {
						return err
					}
					if format == formatJSON {
						return writeJSON(os.Stdout, summaries)
					}
					for _, s := range summaries {
						fmt.Fprintf(os.Stdout, "%s\t%s\t%d items\n", s.Name, s.CreatedAt.Format("2006-01-02 15:04:05"), s.Items)
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Print a saved baseline as JSON",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := baselineName(c)
					if err != nil {
						return err
					}
					store, closer, err := cfg.open(ctx)
					if err != nil {
						return err
					}
					defer closer()

					b, err := store.Get(ctx, name)
					if err != nil {
						return err
					}
					return writeJSON(os.Stdout, b)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a saved baseline",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := baselineName(c)
					if err != nil {
						return err
					}
					store, closer, err := cfg.open(ctx)
					if err != nil {
						return err
					}
					defer closer()

					if err := store.Delete(ctx, name); err != nil {
						return err
					}
					logging.Default().Info("Baseline deleted", "name", name)
					return nil
				},
			},
		},
	}
}
