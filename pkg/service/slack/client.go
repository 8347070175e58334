package slack

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gapcheck/pkg/domain/interfaces"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/domain/types"
	"github.com/slack-go/slack"
)

const (
	// maxListedItems caps how many drifted requirements are listed per section
	maxListedItems = 10

	// Slack rejects section text longer than 3000 characters
	maxSectionBytes = 3000
)

// Notifier posts baseline drift reports to a Slack channel
type Notifier struct {
	api       *slack.Client
	channelID string
}

var _ interfaces.DriftNotifier = &Notifier{}

// Option is a functional option for Notifier configuration
type Option func(*options)

type options struct {
	apiURL string
}

// WithAPIURL overrides the Slack Web API endpoint
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// New creates a Notifier posting to channelID with the provided bot token
func New(token, channelID string, opts ...Option) (*Notifier, error) {
	if token == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "Slack bot token is required")
	}
	if channelID == "" {
		return nil, goerr.Wrap(model.ErrInvalidConfig, "Slack channel ID is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var slackOpts []slack.Option
	if o.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(o.apiURL))
	}

	return &Notifier{
		api:       slack.New(token, slackOpts...),
		channelID: channelID,
	}, nil
}

// NotifyDrift posts a summary of report's baseline comparison. Reports without a
// comparison or without drift are not posted.
func (n *Notifier) NotifyDrift(ctx context.Context, report *model.AnalysisReport) error {
	if report == nil || report.Comparison == nil || !report.Comparison.Summary.HasDrift() {
		return nil
	}

	blocks, text := DriftMessage(report)
	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post drift message",
			goerr.V("channel_id", n.channelID),
			goerr.V("analysis_id", report.ID))
	}
	return nil
}

// DriftMessage builds the Block Kit blocks and fallback text for a drift report
func DriftMessage(report *model.AnalysisReport) ([]slack.Block, string) {
	cmp := report.Comparison
	s := cmp.Summary
	text := fmt.Sprintf("Requirement coverage drifted from baseline %q: %d new, %d changed, %d removed, %d unchanged",
		cmp.BaselineName, s.Added, s.Changed, s.Removed, s.Unchanged)

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Coverage drift: "+cmp.BaselineName, false, false)),
		slack.NewSectionBlock(nil, []*slack.TextBlockObject{
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*New*\n%d", s.Added), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Changed*\n%d", s.Changed), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Removed*\n%d", s.Removed), false, false),
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Unchanged*\n%d", s.Unchanged), false, false),
		}, nil),
	}

	var added, changed []string
	for _, r := range cmp.Results {
		switch r.BaselineStatus {
		case types.BaselineStatusNew:
			added = append(added, fmt.Sprintf("• %s (%s)", r.Requirement, r.Classification))
		case types.BaselineStatusChanged:
			changed = append(changed, fmt.Sprintf("• %s (%s → %s)", r.Requirement, r.BaselineClassification, r.Classification))
		}
	}
	var removed []string
	for _, r := range cmp.Removed {
		removed = append(removed, fmt.Sprintf("• %s (%s)", r.Requirement, r.Classification))
	}

	for _, section := range []struct {
		title string
		lines []string
	}{
		{"New requirements", added},
		{"Changed requirements", changed},
		{"Removed requirements", removed},
	} {
		if len(section.lines) == 0 {
			continue
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, listText(section.title, section.lines), false, false),
			nil, nil))
	}

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType, "Analysis "+string(report.ID), false, false)))

	return blocks, text
}

func listText(title string, lines []string) string {
	shown := lines[:min(len(lines), maxListedItems)]
	text := "*" + title + "*\n" + strings.Join(shown, "\n")
	if rest := len(lines) - len(shown); rest > 0 {
		text += fmt.Sprintf("\n…and %d more", rest)
	}
	return truncateToMaxBytes(text, maxSectionBytes)
}

// truncateToMaxBytes cuts s to at most n bytes without splitting a UTF-8 sequence
func truncateToMaxBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

