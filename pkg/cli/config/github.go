package config

import (
	"log/slog"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds the GitHub App credentials used to read documentation repositories
type GitHub struct {
	appID          int
	installationID int
	privateKey     string
}

func (g *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "github-app-id",
			Category:    "sources",
			Usage:       "GitHub App ID",
			Sources:     cli.EnvVars("GAPCHECK_GITHUB_APP_ID"),
			Destination: &g.appID,
		},
		&cli.IntFlag{
			Name:        "github-app-installation-id",
			Category:    "sources",
			Usage:       "GitHub App Installation ID",
			Sources:     cli.EnvVars("GAPCHECK_GITHUB_APP_INSTALLATION_ID"),
			Destination: &g.installationID,
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Category:    "sources",
			Usage:       "GitHub App Private Key (PEM string or file path)",
			Sources:     cli.EnvVars("GAPCHECK_GITHUB_APP_PRIVATE_KEY"),
			Destination: &g.privateKey,
		},
	}
}

// LogAttrs returns log attributes for the GitHub configuration (secrets hidden)
func (g *GitHub) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("app_id", g.appID),
		slog.Int("installation_id", g.installationID),
	}
}

func (g *GitHub) IsConfigured() bool {
	return g.appID != 0 && g.installationID != 0 && g.privateKey != ""
}

// Transport returns an HTTP transport authenticated as the App installation
func (g *GitHub) Transport() (http.RoundTripper, error) {
	if !g.IsConfigured() {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "GitHub App flags are required for github sources")
	}
	tr, err := github.NewTransport(int64(g.appID), int64(g.installationID), g.privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport")
	}
	return tr, nil
}
