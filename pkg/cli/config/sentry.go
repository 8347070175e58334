package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/utils/errutil"
	"github.com/urfave/cli/v3"
)

// Sentry configures error reporting. Without a DSN errors are only logged.
type Sentry struct {
	dsn         string
	environment string
	release     string
}

func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Category:    "sentry",
			Usage:       "Sentry DSN",
			Sources:     cli.EnvVars("GAPCHECK_SENTRY_DSN", "SENTRY_DSN"),
			Destination: &x.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Category:    "sentry",
			Usage:       "Sentry environment",
			Sources:     cli.EnvVars("GAPCHECK_SENTRY_ENV"),
			Destination: &x.environment,
		},
	}
}

func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("dsn", x.dsn != ""),
		slog.String("environment", x.environment),
	)
}

func (x *Sentry) IsConfigured() bool {
	return x.dsn != ""
}

// Configure initializes the Sentry client. The returned function flushes pending events.
func (x *Sentry) Configure(release string) (func(), error) {
	if !x.IsConfigured() {
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.environment,
		Release:     release,
	}); err != nil {
		return func() {}, goerr.Wrap(err, "failed to initialize Sentry")
	}

	return func() { errutil.Flush(2 * time.Second) }, nil
}
