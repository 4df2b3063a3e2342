// Package notify delivers escalation notifications to Slack: one Block
// Kit message per escalated alert, with no message threading since
// escalations are independent events rather than a linked conversation.
// Every method is nil-safe and fail-open so a missing Slack
// configuration or a delivery error never blocks the monitoring loop.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/codeready-toolchain/cladc/internal/monitoring"
)

// Client is a thin wrapper around the slack-go SDK.
type Client struct {
	api       *goslack.Client
	channelID string
}

// NewClient creates a Slack API client posting to channelID.
func NewClient(token, channelID string) *Client {
	return &Client{api: goslack.New(token), channelID: channelID}
}

// NewClientWithAPIURL creates a Slack API client that targets a custom API
// URL, for testing against a mock server.
func NewClientWithAPIURL(token, channelID, apiURL string) *Client {
	return &Client{api: goslack.New(token, goslack.OptionAPIURL(apiURL)), channelID: channelID}
}

// PostMessage sends blocks to the client's configured channel.
func (c *Client) PostMessage(ctx context.Context, blocks []goslack.Block, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, _, err := c.api.PostMessageContext(ctx, c.channelID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("chat.postMessage failed: %w", err)
	}
	return nil
}

// EscalationNotifier posts one message per escalated alert to Slack.
// Nil-safe: every method is a no-op when the notifier itself is nil, so
// callers can wire it unconditionally and it degrades to "disabled"
// when no token/channel is configured.
type EscalationNotifier struct {
	client *Client
	logger *slog.Logger
}

// NewEscalationNotifier returns nil if token or channel is empty, so the
// Coordinator can hold an always-valid *EscalationNotifier reference.
func NewEscalationNotifier(token, channel string) *EscalationNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &EscalationNotifier{client: NewClient(token, channel), logger: slog.Default().With("component", "escalation-notifier")}
}

// NewEscalationNotifierWithClient builds a notifier around a pre-built
// Client, for testing against a mock Slack API server.
func NewEscalationNotifierWithClient(client *Client) *EscalationNotifier {
	return &EscalationNotifier{client: client, logger: slog.Default().With("component", "escalation-notifier")}
}

// NotifyEscalated posts one message per alert that just transitioned to
// AlertEscalated. Fail-open: a delivery error is logged, never returned,
// since a missed Slack post must not block the monitoring loop.
func (n *EscalationNotifier) NotifyEscalated(ctx context.Context, target string, alerts []monitoring.Alert) {
	if n == nil {
		return
	}
	for _, a := range alerts {
		blocks := buildEscalationMessage(target, a)
		if err := n.client.PostMessage(ctx, blocks, 5*time.Second); err != nil {
			n.logger.Error("failed to send escalation notification",
				"alert_id", a.ID, "monitor", a.Monitor, "target", target, "error", err)
		}
	}
}

func buildEscalationMessage(target string, a monitoring.Alert) []goslack.Block {
	emoji := ":warning:"
	if a.Type == monitoring.AlertCritical {
		emoji = ":rotating_light:"
	}
	text := fmt.Sprintf(
		"%s *Alert escalated* (target: %s)\n*Monitor:* %s  *Metric:* %s  *Value:* %.2f\n*Severity:* %s  *First seen:* %s",
		emoji, target, a.Monitor, a.Metric, a.Value, a.Severity, a.FirstSeen.Format(time.RFC3339),
	)
	return []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}
}
