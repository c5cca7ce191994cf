package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSConfig represents SMS notifier configuration. The provider URL accepts
// a generic JSON payload {to, message, apiKey}; operators front it with
// whatever gateway they use.
type SMSConfig struct {
	ProviderURL string
	APIKey      string
}

// SMSNotifier sends SMS notifications through a configured HTTP gateway.
type SMSNotifier struct {
	config     *SMSConfig
	httpClient *http.Client
}

// NewSMSNotifier creates a new SMS notifier
func NewSMSNotifier(config *SMSConfig) *SMSNotifier {
	return &SMSNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send sends an SMS notification. notification.Destination is the
// recipient's phone number, supplied per-monitor by the alert engine.
func (n *SMSNotifier) Send(ctx context.Context, notification *Notification) error {
	if notification.Destination == "" {
		return fmt.Errorf("no destination phone number provided")
	}
	if n.config.ProviderURL == "" {
		return fmt.Errorf("no SMS provider configured")
	}

	message := fmt.Sprintf("%s: %s", notification.Title, notification.Message)
	if len(message) > 160 {
		message = message[:157] + "..."
	}

	payload := map[string]interface{}{
		"to":      notification.Destination,
		"message": message,
		"apiKey":  n.config.APIKey,
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.config.ProviderURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.config.APIKey)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SMS provider returned status %d", resp.StatusCode)
	}
	return nil
}

// Type returns the notifier type
func (n *SMSNotifier) Type() string {
	return "sms"
}

// Validate validates the SMS configuration
func (n *SMSNotifier) Validate() error {
	if n.config.ProviderURL == "" {
		return fmt.Errorf("SMS provider URL is required")
	}
	return nil
}
