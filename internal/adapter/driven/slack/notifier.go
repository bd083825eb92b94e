// Package slack notifies an operator channel of triggered pipeline alerts.
package slack

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// Notifier posts triggered alerts to a fixed Slack channel. A zero-value
// webhook/token configuration makes Notify a no-op so the pipeline runs
// without Slack configured in dev/test.
type Notifier struct {
	client  *slack.Client
	channel string
}

// NewNotifier builds a Notifier. If token is empty, Notify always succeeds
// without sending anything.
func NewNotifier(token, channel string) *Notifier {
	var client *slack.Client
	if token != "" {
		client = slack.New(token)
	}
	return &Notifier{client: client, channel: channel}
}

func (n *Notifier) Notify(ctx context.Context, alert *domain.Alert) error {
	if n.client == nil || n.channel == "" {
		return nil
	}

	text := fmt.Sprintf("[%s] %s", alert.Severity, alert.Title)
	attachment := slack.Attachment{
		Color:     colorFor(alert.Severity),
		Title:     alert.Title,
		Fallback:  text,
		Ts:        json.Number(fmt.Sprintf("%d", alert.CreatedAt.Unix())),
	}
	if alert.Message != nil {
		attachment.Text = *alert.Message
	}
	if alert.Source != nil {
		attachment.Footer = *alert.Source
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionAttachments(attachment),
	)
	return err
}

func colorFor(sev domain.AlertSeverity) string {
	switch sev {
	case domain.AlertSeverityCritical, domain.AlertSeverityHigh:
		return "danger"
	case domain.AlertSeverityWarning, domain.AlertSeverityMedium:
		return "warning"
	default:
		return "#439FE0"
	}
}
