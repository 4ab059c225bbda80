// Package slack notifies the clinic front desk via Slack incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/smilecare/internal/booking"
	"github.com/linnemanlabs/smilecare/internal/triage"
	"github.com/linnemanlabs/smilecare/internal/urgency"
)

const (
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
	timeLayout    = "2006-01-02 15:04 UTC"
)

// Notifier posts urgent assessments and new appointments to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, every notify
// call is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout:   httpTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// NotifyUrgent reports an assessment classified as urgent.
func (n *Notifier) NotifyUrgent(ctx context.Context, a *triage.Assessment) error {
	if err := n.post(ctx, buildUrgentMessage(a)); err != nil {
		return err
	}
	n.logger.Info(ctx, "slack urgent notification sent", "assessment_id", a.ID)
	return nil
}

// NotifyAppointment reports a confirmed appointment.
func (n *Notifier) NotifyAppointment(ctx context.Context, a *booking.Appointment) error {
	if err := n.post(ctx, buildAppointmentMessage(a)); err != nil {
		return err
	}
	n.logger.Info(ctx, "slack appointment notification sent", "appointment_id", a.ID)
	return nil
}

func (n *Notifier) post(ctx context.Context, msg map[string]any) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildUrgentMessage(a *triage.Assessment) map[string]any {
	var res urgency.Result
	if a.Result != nil {
		res = *a.Result
	}
	info := res.Tier.Info()

	return map[string]any{
		"blocks": []map[string]any{
			header(fmt.Sprintf("%s Urgent symptom check: %s", tierEmoji(res.Tier), info.Title)),
			{"type": "divider"},
			fields(
				"Patient", a.PatientID,
				"Score", fmt.Sprintf("%d / %d", res.Score, urgency.MaxScore()),
				"Tier", res.Tier.String(),
				"Recommendation", info.Recommendation,
			),
			{"type": "divider"},
			section("*Reported symptoms*\n\n" + symptomList(a.Answers)),
			{"type": "divider"},
			footer("assessment", a.ID, firstNonZero(a.CompletedAt, a.CreatedAt)),
		},
	}
}

func buildAppointmentMessage(a *booking.Appointment) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			header(fmt.Sprintf("\U0001f4c5 New appointment: %s", a.DoctorName)),
			{"type": "divider"},
			fields(
				"Patient", a.PatientID,
				"Service", a.ServiceName,
				"Date", a.Date,
				"Time", a.Time,
				"Total", fmt.Sprintf("$%d", a.TotalCost),
				"Status", string(a.Status),
			),
			{"type": "divider"},
			footer("appointment", a.ID, a.CreatedAt),
		},
	}
}

func header(text string) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(text, 150),
		},
	}
}

// fields renders label/value pairs as a two-column section.
func fields(pairs ...string) map[string]any {
	out := make([]map[string]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:* %s", pairs[i], escape(pairs[i+1])),
		})
	}
	return map[string]any{
		"type":   "section",
		"fields": out,
	}
}

func section(text string) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(text, maxSectionLen),
		},
	}
}

func footer(kind, id string, ts time.Time) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("smilecare • %s %s • %s", kind, id, ts.UTC().Format(timeLayout)),
			},
		},
	}
}

func symptomList(answers urgency.AnswerSet) string {
	var lines []string
	for _, q := range urgency.Questions() {
		if answers[q.ID] {
			lines = append(lines, fmt.Sprintf("• %s %s (+%d)", q.Icon, q.Text, q.Weight))
		}
	}
	if len(lines) == 0 {
		return "_No symptoms reported._"
	}
	return strings.Join(lines, "\n")
}

func tierEmoji(t urgency.Tier) string {
	switch t {
	case urgency.Urgent:
		return "\U0001f534" // red circle
	case urgency.High:
		return "\U0001f7e0" // orange circle
	case urgency.Medium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(s string) string { return mrkdwnEscaper.Replace(s) }

func firstNonZero(ts ...time.Time) time.Time {
	for _, t := range ts {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
