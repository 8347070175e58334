package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/secmon-lab/gapcheck/pkg/controller/http"
	"github.com/secmon-lab/gapcheck/pkg/service/worker"
	"github.com/secmon-lab/gapcheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var ingestInterval time.Duration
	var maxBodyBytes int64
	var appCfg appConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("GAPCHECK_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "ingest-interval",
			Usage:       "Interval of background re-ingestion of the configured sources (0 disables)",
			Value:       time.Hour,
			Sources:     cli.EnvVars("GAPCHECK_INGEST_INTERVAL"),
			Destination: &ingestInterval,
		},
		&cli.Int64Flag{
			Name:        "max-body-bytes",
			Usage:       "Maximum size of an API request body",
			Value:       1 << 20,
			Sources:     cli.EnvVars("GAPCHECK_MAX_BODY_BYTES"),
			Destination: &maxBodyBytes,
		},
	}
	flags = append(flags, appCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP API server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, cleanup, err := appCfg.build(ctx)
			defer cleanup()
			if err != nil {
				return err
			}

			var ingestWorker *worker.IngestWorker
			if appCfg.sources.IsConfigured() && ingestInterval > 0 {
				ingestWorker = worker.NewIngestWorker(uc, ingestInterval)
				ingestWorker.Start(ctx)
			} else {
				logging.Default().Info("Background ingestion disabled",
					"sources", appCfg.sources.IsConfigured(),
					"interval", ingestInterval.String())
			}

			handler := httpctrl.New(uc,
				httpctrl.WithSentry(sentry.CurrentHub().Client() != nil),
				httpctrl.WithMaxBodyBytes(maxBodyBytes),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				if ingestWorker != nil {
					ingestWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				if ingestWorker != nil {
					ingestWorker.Stop()
				}
				uc.Wait()

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
