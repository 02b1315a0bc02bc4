package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/dotcommander/supervisa/internal/alerts"
)

// DefaultMaxAlerts caps the attachments of one message.
const DefaultMaxAlerts = 20

// Poster delivers one prepared Slack message.
type Poster func(ctx context.Context, msg *slack.WebhookMessage) error

// Notifier posts alert digests to Slack.
type Notifier struct {
	post      Poster
	maxAlerts int
}

// New creates a Notifier that delivers through post.
func New(post Poster, maxAlerts int) *Notifier {
	if maxAlerts <= 0 {
		maxAlerts = DefaultMaxAlerts
	}
	return &Notifier{post: post, maxAlerts: maxAlerts}
}

// NewWebhook creates a Notifier that posts to an incoming webhook URL.
func NewWebhook(url string, maxAlerts int) *Notifier {
	return New(func(ctx context.Context, msg *slack.WebhookMessage) error {
		return slack.PostWebhookContext(ctx, url, msg)
	}, maxAlerts)
}

// NewBot creates a Notifier that posts to a channel with a bot token.
func NewBot(token, channelID string, maxAlerts int) *Notifier {
	api := slack.New(token)
	return New(func(ctx context.Context, msg *slack.WebhookMessage) error {
		_, _, err := api.PostMessageContext(ctx, channelID,
			slack.MsgOptionText(msg.Text, false),
			slack.MsgOptionAttachments(msg.Attachments...))
		return err
	}, maxAlerts)
}

// Send posts the alerts. An empty list sends nothing.
func (n *Notifier) Send(ctx context.Context, list []alerts.Alert) error {
	if len(list) == 0 {
		return nil
	}
	if err := n.post(ctx, n.Message(list)); err != nil {
		return fmt.Errorf("failed to post alerts to Slack: %w", err)
	}
	return nil
}

// Message builds the digest for list. Alerts are expected in display order.
func (n *Notifier) Message(list []alerts.Alert) *slack.WebhookMessage {
	critical, warning := alerts.Counts(list)
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("Supervision alerts: %d critical, %d warning", critical, warning),
	}

	shown := list
	if len(shown) > n.maxAlerts {
		shown = shown[:n.maxAlerts]
	}
	for _, a := range shown {
		msg.Attachments = append(msg.Attachments, slack.Attachment{
			Color:  color(a.Severity),
			Title:  fmt.Sprintf("%s: %s", a.Subject, a.Message),
			Text:   a.Detail,
			Footer: fmt.Sprintf("%s · %s", a.Rule, a.Date),
		})
	}
	if hidden := len(list) - len(shown); hidden > 0 {
		msg.Attachments = append(msg.Attachments, slack.Attachment{
			Text: fmt.Sprintf("…and %d more", hidden),
		})
	}
	return msg
}

func color(s alerts.Severity) string {
	if s == alerts.SeverityCritical {
		return "danger"
	}
	return "warning"
}
