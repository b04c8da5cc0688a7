// Package slack posts update-run summaries to a Slack incoming webhook.
package slack

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/vytor/openingtiers/internal/logger"
	"github.com/vytor/openingtiers/internal/metrics"
	"github.com/vytor/openingtiers/internal/models"
	"github.com/vytor/openingtiers/internal/notifier"
)

const sendTimeout = 10 * time.Second

// maxListedFailures caps how many failed targets are spelled out.
const maxListedFailures = 5

// postFunc matches slack.PostWebhookContext so tests can intercept it.
type postFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending run notifications to Slack.
type Notifier struct {
	webhookURL string
	onSuccess  bool
	metrics    metrics.Metrics
	post       postFunc
}

// NewNotifier creates a Notifier. Successful runs are only reported when
// notifyOnSuccess is set; partial and failed runs always are.
func NewNotifier(webhookURL string, notifyOnSuccess bool, m metrics.Metrics) *Notifier {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Notifier{
		webhookURL: webhookURL,
		onSuccess:  notifyOnSuccess,
		metrics:    m,
		post:       slack.PostWebhookContext,
	}
}

func (n *Notifier) NotifyRun(ctx context.Context, run models.UpdateRun) error {
	log := logger.FromContext(ctx).WithPrefix("slack")

	if run.Status == models.RunSuccess && !n.onSuccess {
		log.Debug("skipping notification for successful run %s", run.ID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := n.post(ctx, n.webhookURL, formatRun(run)); err != nil {
		n.metrics.IncNotificationsFailed()
		log.Error("failed to send notification for run %s: %v", run.ID, err)
		return fmt.Errorf("post webhook: %w", err)
	}

	n.metrics.IncNotificationsSent()
	log.Info("sent notification for run %s", run.ID)
	return nil
}

func formatRun(run models.UpdateRun) *slack.WebhookMessage {
	color := "good"
	switch run.Status {
	case models.RunPartial:
		color = "warning"
	case models.RunFailed:
		color = "danger"
	}

	fields := []slack.AttachmentField{
		{Title: "Mode", Value: string(run.Mode), Short: true},
		{Title: "Trigger", Value: run.Trigger, Short: true},
		{Title: "Statistics updated", Value: strconv.Itoa(run.StatisticsUpdated), Short: true},
		{Title: "Openings", Value: strconv.Itoa(run.OpeningsProcessed), Short: true},
		{Title: "Skipped", Value: strconv.Itoa(run.RecordsSkipped), Short: true},
		{Title: "Duration", Value: fmt.Sprintf("%.1fs", run.DurationSeconds), Short: true},
	}
	if len(run.Failures) > 0 {
		fields = append(fields, slack.AttachmentField{
			Title: fmt.Sprintf("Failed targets (%d)", len(run.Failures)),
			Value: failureList(run.Failures),
		})
	}
	if run.ErrorMessage != "" {
		fields = append(fields, slack.AttachmentField{Title: "Error", Value: run.ErrorMessage})
	}

	return &slack.WebhookMessage{
		Text: fmt.Sprintf("Opening statistics update %s: *%s*", run.ID, run.Status),
		Attachments: []slack.Attachment{{
			Color:  color,
			Fields: fields,
		}},
	}
}

func failureList(failures []models.FetchFailure) string {
	var b strings.Builder
	for i, f := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(&b, "... and %d more", len(failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(&b, "• %s (%s/%s): %s\n", f.Line, f.RatingRange, f.TimeControl, f.Error)
	}
	return strings.TrimSpace(b.String())
}
