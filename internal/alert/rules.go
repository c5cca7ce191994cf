package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/services/notification"
)

// ruleEnv is the expr-lang evaluation environment exposed to owner-defined
// AlertRule conditions, grounded on the teacher's AlertEngine.prepareEnv.
type ruleEnv struct {
	Status           string  `expr:"status"`
	ResponseTimeMs   int     `expr:"responseTimeMs"`
	StatusCode       int     `expr:"statusCode"`
	ErrorType        string  `expr:"errorType"`
	ConsecutiveFails int     `expr:"consecutiveFailures"`
	Confidence       float64 `expr:"confidence"`
	ReliabilityScore float64 `expr:"reliabilityScore"`
}

func buildRuleEnv(m *models.Monitor, check *models.Check, confidence float64) map[string]interface{} {
	return map[string]interface{}{
		"status":              string(check.Status),
		"responseTimeMs":      check.ResponseTimeMs,
		"statusCode":          check.StatusCode,
		"errorType":           check.ErrorType,
		"consecutiveFailures": m.ConsecutiveFailures,
		"confidence":          confidence,
		"reliabilityScore":    m.ReliabilityScore(),
	}
}

// evaluateCustomRules runs every enabled AlertRule for the monitor against
// env and fans out an additional notification for each match. Strictly
// additive to the built-in engine: it never touches the incident lifecycle
// (§4.F EXPANSION).
func (e *Engine) evaluateCustomRules(ctx context.Context, m *models.Monitor, check *models.Check, confidence float64) {
	if e.rules == nil {
		return
	}
	rules, err := e.rules.ListEnabledByMonitor(ctx, m.ID)
	if err != nil {
		logrus.Errorf("alert: list enabled rules for monitor %s: %v", m.ID, err)
		return
	}
	if len(rules) == 0 {
		return
	}

	env := buildRuleEnv(m, check, confidence)
	for _, rule := range rules {
		triggered, err := evalRuleCondition(rule.Condition, env)
		if err != nil {
			logrus.Warnf("alert: rule %s (%s) failed to evaluate: %v", rule.ID, rule.Name, err)
			continue
		}
		if !triggered {
			continue
		}

		level := escalationFromSeverity(rule.Severity)
		targets := targetsForRule(m, rule)
		payload := &notification.Notification{
			Title:    fmt.Sprintf("Alert rule %q triggered", rule.Name),
			Message:  fmt.Sprintf("Monitor %s matched custom rule: %s", m.Name, rule.Condition),
			Severity: severityToNotificationSeverity(rule.Severity),
		}
		alertType := "rule:" + rule.ID.String()
		e.fanOut(ctx, m.ID.String(), level, alertType, targets, payload)

		if err := e.rules.RecordTrigger(ctx, rule.ID, time.Now().UTC()); err != nil {
			logrus.Errorf("alert: record trigger for rule %s: %v", rule.ID, err)
		}
	}
}

// targetsForRule resolves the channels a custom rule notifies: an explicit
// rule.NotifyChannels list narrows (and can extend, e.g. "dingtalk",
// "wechat") the monitor's default contact set; an empty list falls back to
// every channel configured on the monitor itself.
func targetsForRule(m *models.Monitor, rule *models.AlertRule) []channelTarget {
	if len(rule.NotifyChannels) == 0 {
		return channelsForMonitor(m)
	}

	byChannel := map[string][]channelTarget{}
	for _, t := range channelsForMonitor(m) {
		byChannel[t.name] = append(byChannel[t.name], t)
	}

	var targets []channelTarget
	for _, channel := range rule.NotifyChannels {
		if existing, ok := byChannel[channel]; ok {
			targets = append(targets, existing...)
			continue
		}
		// Global, config-level channels (dingtalk, wechat) have no
		// per-monitor destination; the registered notifier uses its own
		// configured webhook URL.
		targets = append(targets, channelTarget{name: channel})
	}
	return targets
}

func evalRuleCondition(condition string, env map[string]interface{}) (bool, error) {
	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile: %w", err)
	}
	output, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run: %w", err)
	}
	triggered, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a boolean")
	}
	return triggered, nil
}

func severityToNotificationSeverity(s models.IncidentSeverity) notification.Severity {
	switch s {
	case models.IncidentSeverityHigh:
		return notification.SeverityCritical
	case models.IncidentSeverityMedium:
		return notification.SeverityWarning
	default:
		return notification.SeverityInfo
	}
}
