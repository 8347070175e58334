package config

import (
	"log/slog"

	"github.com/secmon-lab/gapcheck/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack configures drift notifications
type Slack struct {
	botToken  string
	channelID string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Category:    "slack",
			Usage:       "Slack Bot User OAuth Token used to post drift notifications",
			Sources:     cli.EnvVars("GAPCHECK_SLACK_BOT_TOKEN"),
			Destination: &x.botToken,
		},
		&cli.StringFlag{
			Name:        "slack-channel-id",
			Category:    "slack",
			Usage:       "Slack channel ID receiving drift notifications",
			Sources:     cli.EnvVars("GAPCHECK_SLACK_CHANNEL_ID"),
			Destination: &x.channelID,
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("bot_token", x.botToken != ""),
		slog.String("channel_id", x.channelID),
	)
}

func (x *Slack) IsConfigured() bool {
	return x.botToken != "" && x.channelID != ""
}

// Configure returns nil when Slack is not configured (notifications are disabled)
func (x *Slack) Configure() (*slack.Notifier, error) {
	if !x.IsConfigured() {
		return nil, nil
	}
	return slack.New(x.botToken, x.channelID)
}
