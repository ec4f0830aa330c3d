package notify

import (
	"context"
	"fmt"

	"github.com/nidhogg/reviewflow/internal/workflow"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// SlackNotifier posts terminal workflow statuses to a Slack incoming
// webhook. Delivery is best-effort; a failed post is logged and dropped.
type SlackNotifier struct {
	webhookURL string
	logger     *zap.Logger
}

// NewSlack creates a notifier. An empty webhook URL yields a disabled
// notifier whose calls are no-ops.
func NewSlack(webhookURL string, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL, logger: logger}
}

// WorkflowFinished posts one message summarizing a finished workflow.
func (n *SlackNotifier) WorkflowFinished(ctx context.Context, workflowID string, status workflow.Status, errMsg string) {
	if n.webhookURL == "" {
		return
	}
	text := fmt.Sprintf("Review workflow `%s` %s", workflowID, status)
	if status == workflow.StatusFailed && errMsg != "" {
		text += "\n> " + errMsg
	}
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		n.logger.Warn("slack notification failed",
			zap.String("workflow_id", workflowID), zap.Error(err))
		return
	}
	n.logger.Debug("slack notification sent", zap.String("workflow_id", workflowID))
}
