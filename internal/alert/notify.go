package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/metrics"
	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/services/notification"
)

const (
	channelTimeout = 10 * time.Second
	emailRetries   = 3
)

var emailBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// channelTarget is one configured notification destination derived from the
// monitor's contact fields.
type channelTarget struct {
	name        string // "email", "slack", "sms", "webhook"
	destination string
}

func channelsForMonitor(m *models.Monitor) []channelTarget {
	var targets []channelTarget
	for _, addr := range m.ContactEmails {
		targets = append(targets, channelTarget{name: "email", destination: addr})
	}
	if string(m.SlackWebhook) != "" {
		targets = append(targets, channelTarget{name: "slack", destination: string(m.SlackWebhook)})
	}
	for _, number := range m.SMSNumbers {
		targets = append(targets, channelTarget{name: "sms", destination: number})
	}
	if string(m.Webhook) != "" {
		targets = append(targets, channelTarget{name: "webhook", destination: string(m.Webhook)})
	}
	return targets
}

// dispatchResult is one channel's delivery outcome, used both to build
// Incident.NotificationsSent and to decide what to log.
type dispatchResult struct {
	channel string
	sent    bool
	err     error
}

// fanOut sends notification to every channel target in parallel, each
// bounded by channelTimeout, skipping channels that are currently
// suppressed or whose target fails the SSRF guard (§4.F).
func (e *Engine) fanOut(ctx context.Context, monitorID string, level escalationLevel, alertType string, targets []channelTarget, notification *notification.Notification) []dispatchResult {
	results := make([]dispatchResult, len(targets))
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target channelTarget) {
			defer wg.Done()
			results[i] = e.sendOne(ctx, monitorID, level, alertType, target, notification)
		}(i, target)
	}
	wg.Wait()
	return results
}

func (e *Engine) sendOne(ctx context.Context, monitorID string, level escalationLevel, alertType string, target channelTarget, n *notification.Notification) dispatchResult {
	suppressed, err := e.cache.IsSuppressed(ctx, monitorID, alertType, int(level))
	if err != nil {
		logrus.Warnf("alert: check suppression for monitor %s: %v", monitorID, err)
	}
	if suppressed {
		return dispatchResult{channel: target.name, sent: false}
	}

	if target.name == "slack" || target.name == "webhook" {
		if err := validateOutboundURL(ctx, target.destination); err != nil {
			logrus.Warnf("alert: rejecting %s target for monitor %s: %v", target.name, monitorID, err)
			return dispatchResult{channel: target.name, sent: false, err: err}
		}
	}

	notifier, ok := e.notifiers[target.name]
	if !ok {
		return dispatchResult{channel: target.name, sent: false, err: fmt.Errorf("no notifier registered for %s", target.name)}
	}

	payload := *n
	payload.Destination = target.destination

	sendCtx, cancel := context.WithTimeout(ctx, channelTimeout)
	defer cancel()

	var sendErr error
	if target.name == "email" {
		sendErr = sendWithRetry(sendCtx, notifier, &payload)
	} else {
		sendErr = notifier.Send(sendCtx, &payload)
	}

	if sendErr != nil {
		metrics.NotificationsSent.WithLabelValues(target.name, "error").Inc()
		return dispatchResult{channel: target.name, sent: false, err: sendErr}
	}
	metrics.NotificationsSent.WithLabelValues(target.name, "sent").Inc()

	ttlSeconds := suppressionTTLSeconds(level)
	if alertType == "recovery" {
		// §4.F names a distinct recovery-suppression TTL (60s) rather than
		// reusing the low-escalation default, so a flapping monitor can't
		// fire a fresh recovery email every probe cycle while still up.
		ttlSeconds = recoverySuppressionTTLSeconds
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if err := e.cache.MarkSuppressed(ctx, monitorID, alertType, int(level), ttl); err != nil {
		logrus.Warnf("alert: mark suppression for monitor %s: %v", monitorID, err)
	}
	return dispatchResult{channel: target.name, sent: true}
}

// sendWithRetry implements §4.F's email retry policy: three attempts,
// waiting 1s and then 2s between them, on retryable errors (network, 5xx,
// 429, timeout);
// non-retryable failures (bad credentials, a rejected recipient) surface
// immediately on the first attempt, tagged by the notifier via
// notification.ErrNonRetryable.
func sendWithRetry(ctx context.Context, notifier notification.Notifier, n *notification.Notification) error {
	var lastErr error
	for attempt := 0; attempt < emailRetries; attempt++ {
		lastErr = notifier.Send(ctx, n)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, notification.ErrNonRetryable) {
			return lastErr
		}
		if attempt == emailRetries-1 {
			break
		}
		select {
		case <-time.After(emailBackoff[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func buildNotificationsSent(results []dispatchResult) models.JSONB {
	sent := models.NotificationsSent{}
	var emailDetails []models.EmailDelivery
	for _, r := range results {
		switch r.channel {
		case "email":
			sent.Email = sent.Email || r.sent
			detail := models.EmailDelivery{Sent: r.sent, At: time.Now().UTC()}
			if r.err != nil {
				detail.Error = r.err.Error()
			}
			emailDetails = append(emailDetails, detail)
		case "slack":
			sent.Slack = sent.Slack || r.sent
		case "sms":
			sent.SMS = sent.SMS || r.sent
		case "webhook":
			sent.Webhook = sent.Webhook || r.sent
		}
	}
	sent.EmailDetails = emailDetails

	return models.JSONB{
		"email":        sent.Email,
		"slack":        sent.Slack,
		"sms":          sent.SMS,
		"webhook":      sent.Webhook,
		"emailDetails": emailDetails,
	}
}
