// Package notify sends webhook notifications with the outcome of a sync run.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/cissync/internal/config"
	"github.com/ppiankov/cissync/internal/syncer"
)

const httpTimeout = 10 * time.Second

// Notifier delivers run summaries to configured webhooks.
type Notifier struct {
	client   *http.Client
	webhooks []config.WebhookConfig
}

// New creates a Notifier from notification config. Returns nil if not
// enabled or no webhooks are configured.
func New(cfg config.NotificationConfig) *Notifier {
	if !cfg.Enabled || len(cfg.Webhooks) == 0 {
		return nil
	}
	return &Notifier{
		webhooks: cfg.Webhooks,
		client:   &http.Client{Timeout: httpTimeout},
	}
}

// Notify sends the run summary to every configured webhook. Delivery is
// fire-and-forget: failures are logged, never returned.
func (n *Notifier) Notify(res syncer.Result) {
	for i := range n.webhooks {
		wh := &n.webhooks[i]
		switch wh.Type {
		case "slack":
			n.sendSlack(wh, res)
		default:
			n.sendGeneric(wh, res)
		}
	}
}

// GenericPayload is the JSON body sent to generic webhooks.
type GenericPayload struct {
	Timestamp time.Time `json:"timestamp"`
	Summary   string    `json:"summary"`
	DryRun    bool      `json:"dryRun"`
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Failures  []string  `json:"failures,omitempty"`
}

func (n *Notifier) sendGeneric(wh *config.WebhookConfig, res syncer.Result) {
	payload := GenericPayload{
		Timestamp: time.Now().UTC(),
		Summary:   buildSummary(res),
		DryRun:    res.DryRun,
		Processed: res.Processed,
		Created:   res.Created,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Failures:  failedNames(res),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("notification: marshal error", "err", err)
		return
	}
	n.post(wh, body)
}

// SlackPayload is the JSON body sent to Slack incoming webhooks.
type SlackPayload struct {
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a Slack Block Kit block.
type SlackBlock struct {
	Text *SlackText `json:"text,omitempty"`
	Type string     `json:"type"`
}

// SlackText is a Slack text element.
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) sendSlack(wh *config.WebhookConfig, res syncer.Result) {
	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: fmt.Sprintf("cissync: %s", buildSummary(res)),
			},
		},
		{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("processed *%d* · created *%d* · skipped *%d* · failed *%d*",
					res.Processed, res.Created, res.Skipped, res.Failed),
			},
		},
	}

	for _, name := range failedNames(res) {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf(":x: `%s`", name),
			},
		})
	}

	blocks = append(blocks, SlackBlock{
		Type: "context",
		Text: &SlackText{
			Type: "mrkdwn",
			Text: fmt.Sprintf("Source: cissync | %s", time.Now().UTC().Format(time.RFC3339)),
		},
	})

	body, err := json.Marshal(SlackPayload{Blocks: blocks})
	if err != nil {
		slog.Warn("notification: slack marshal error", "err", err)
		return
	}
	n.post(wh, body)
}

func (n *Notifier) post(wh *config.WebhookConfig, body []byte) {
	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body)) //nolint:noctx // fire-and-forget notification
	if err != nil {
		slog.Warn("notification: request error", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if wh.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+wh.APIKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("notification: webhook delivery failed", "url", wh.URL, "err", err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck // read-only close
	if resp.StatusCode >= 300 {
		slog.Warn("notification: webhook returned non-2xx", "url", wh.URL, "status", resp.StatusCode)
	}
}

func failedNames(res syncer.Result) []string {
	var names []string
	for i := range res.Outcomes {
		if res.Outcomes[i].Action == syncer.ActionFailed {
			names = append(names, res.Outcomes[i].Name)
		}
	}
	return names
}

func buildSummary(res syncer.Result) string {
	var parts []string
	if res.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d created", res.Created))
	}
	if res.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", res.Skipped))
	}
	if res.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", res.Failed))
	}
	if len(parts) == 0 {
		return "no policies processed"
	}
	summary := strings.Join(parts, ", ")
	if res.DryRun {
		summary += " (dry run)"
	}
	return summary
}
