package config

import (
	"log/slog"

	"github.com/urfave/cli/v3"
)

// Notion holds the integration token used to read wiki databases
type Notion struct {
	token string
}

func (n *Notion) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "notion-token",
			Category:    "sources",
			Usage:       "Notion integration token",
			Sources:     cli.EnvVars("GAPCHECK_NOTION_TOKEN"),
			Destination: &n.token,
		},
	}
}

func (n Notion) LogValue() slog.Value {
	return slog.GroupValue(slog.Bool("token", n.token != ""))
}

func (n *Notion) Token() string {
	return n.token
}
