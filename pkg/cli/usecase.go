package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/cli/config"
	"github.com/secmon-lab/gapcheck/pkg/usecase"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// appConfig groups the flags needed to build the use cases
type appConfig struct {
	llm       config.LLM
	repo      config.Repository
	baseline  config.Baseline
	retrieval config.Retrieval
	sources   config.Sources
	slack     config.Slack
}

func (x *appConfig) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, x.llm.Flags()...)
	flags = append(flags, x.repo.Flags()...)
	flags = append(flags, x.baseline.Flags()...)
	flags = append(flags, x.retrieval.Flags()...)
	flags = append(flags, x.sources.Flags()...)
	flags = append(flags, x.slack.Flags()...)
	return flags
}

// build wires provider, repository, baseline store, sources and notifier into the use cases.
// The returned function releases everything that was opened.
func (x *appConfig) build(ctx context.Context) (*usecase.UseCases, func(), error) {
	logger := logging.Default()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	client, err := x.llm.Configure(ctx)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to configure LLM")
	}
	fp := client.Fingerprint()

	repo, err := x.repo.Configure(ctx, fp)
	if err != nil {
		return nil, cleanup, goerr.Wrap(err, "failed to initialize repository")
	}
	closers = append(closers, func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close repository", "error", err.Error())
		}
	})

	baselines, closeBaselines, err := x.baseline.Configure(ctx, repo)
	if err != nil {
		cleanup()
		return nil, func() {}, goerr.Wrap(err, "failed to initialize baseline store")
	}
	closers = append(closers, closeBaselines)

	opts := []usecase.Option{usecase.WithBaselineRepository(baselines)}
	opts = append(opts, x.retrieval.UseCaseOptions()...)

	if x.llm.JudgeEnabled() {
		opts = append(opts, usecase.WithJudge(client))
	} else {
		logger.Info("Judge disabled, classifying from similarity only")
	}

	if x.sources.IsConfigured() {
		sources, err := x.sources.Configure()
		if err != nil {
			cleanup()
			return nil, func() {}, goerr.Wrap(err, "failed to configure sources")
		}
		opts = append(opts, usecase.WithSources(sources...))
	}

	notifier, err := x.slack.Configure()
	if err != nil {
		cleanup()
		return nil, func() {}, goerr.Wrap(err, "failed to configure Slack")
	}
	if notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
		logger.Info("Slack drift notification enabled")
	}

	logger.Info("Use cases configured",
		"llm", x.llm,
		"repository", x.repo,
		"baseline", x.baseline,
		"retrieval", x.retrieval,
		"sources", x.sources,
		"slack", x.slack,
		"collection", repo.Chunk().Collection(),
	)

	return usecase.New(repo, client, opts...), cleanup, nil
}
