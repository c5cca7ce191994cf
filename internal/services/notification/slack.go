package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SlackConfig represents Slack notifier configuration
type SlackConfig struct {
	WebhookURL string `json:"webhook_url"`
	Channel    string `json:"channel"`
	Username   string `json:"username"`
}

// SlackNotifier sends Slack incoming-webhook notifications
type SlackNotifier struct {
	config     *SlackConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(config *SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *SlackNotifier) color(severity Severity) string {
	switch severity {
	case SeverityCritical:
		return "#d00000"
	case SeverityError:
		return "#ff5630"
	case SeverityWarning:
		return "#ffab00"
	default:
		return "#36b37e"
	}
}

// Send sends a Slack notification. The webhook URL comes from
// notification.Destination when set (per-monitor targets), falling back to
// the notifier's own config for a globally configured channel.
func (n *SlackNotifier) Send(ctx context.Context, notification *Notification) error {
	webhookURL := notification.Destination
	if webhookURL == "" {
		webhookURL = n.config.WebhookURL
	}
	if webhookURL == "" {
		return fmt.Errorf("no slack webhook URL configured")
	}

	attachment := map[string]interface{}{
		"color": n.color(notification.Severity),
		"title": notification.Title,
		"text":  notification.Message,
		"ts":    time.Now().Unix(),
	}
	if len(notification.Metadata) > 0 {
		var fields []map[string]interface{}
		for k, v := range notification.Metadata {
			fields = append(fields, map[string]interface{}{
				"title": k,
				"value": fmt.Sprintf("%v", v),
				"short": true,
			})
		}
		attachment["fields"] = fields
	}

	payload := map[string]interface{}{
		"attachments": []interface{}{attachment},
	}
	if n.config.Channel != "" {
		payload["channel"] = n.config.Channel
	}
	if n.config.Username != "" {
		payload["username"] = n.config.Username
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

// Type returns the notifier type
func (n *SlackNotifier) Type() string {
	return "slack"
}

// Validate validates the Slack configuration. The webhook URL is optional
// here since per-monitor targets supply one via Destination at send time.
func (n *SlackNotifier) Validate() error {
	return nil
}
