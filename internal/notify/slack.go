// Package notify posts run summaries to Slack.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"

	"github.com/p-blackswan/progress-sync/internal/engine"
)

// SlackNotifier posts run summaries to a configured channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
	logger  zerolog.Logger
}

// NewSlackNotifier creates a notifier using a bot token.
func NewSlackNotifier(token, channel string, logger zerolog.Logger) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
		logger:  logger.With().Str("component", "notify").Logger(),
	}
}

// PostRunSummary sends the run outcome to the channel. Failures are
// non-fatal to the run; callers log and move on.
func (n *SlackNotifier) PostRunSummary(ctx context.Context, sum *engine.Summary) error {
	_, _, err := n.client.PostMessageContext(
		ctx,
		n.channel,
		slack.MsgOptionBlocks(SummaryBlocks(sum)...),
		slack.MsgOptionText(headline(sum), false),
	)
	if err != nil {
		return fmt.Errorf("posting run summary: %w", err)
	}
	n.logger.Info().Str("run_id", sum.RunID).Str("channel", n.channel).Msg("run summary posted")
	return nil
}

// SummaryBlocks renders a run summary as Slack blocks.
func SummaryBlocks(sum *engine.Summary) []slack.Block {
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Rows:* %d", sum.Rows), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Applied:* %d", sum.Applied), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Unchanged:* %d", sum.Unchanged), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Skipped:* %d", sum.Skipped), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Protected:* %d", sum.Protected), false, false),
		slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("*Write failures:* %d", sum.WriteFails), false, false),
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headline(sum), false, false)),
		slack.NewSectionBlock(nil, fields, nil),
		slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn",
				fmt.Sprintf("run `%s` took %s", sum.RunID, sum.Duration().Round(10*time.Millisecond)), false, false),
		),
	}
	return blocks
}

func headline(sum *engine.Summary) string {
	if sum.DryRun {
		return fmt.Sprintf("Progress sync dry run: %d rows reported", sum.Reported)
	}
	if sum.Failed > 0 || sum.WriteFails > 0 {
		return fmt.Sprintf("Progress sync finished with errors: %d applied, %d failed", sum.Applied, sum.Failed)
	}
	return fmt.Sprintf("Progress sync finished: %d rows applied", sum.Applied)
}
