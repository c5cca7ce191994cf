package models

import (
	"time"

	"github.com/google/uuid"
)

// Protocol identifies which prober handles a Monitor.
type Protocol string

const (
	ProtocolHTTP  Protocol = "HTTP"
	ProtocolHTTPS Protocol = "HTTPS"
	ProtocolTCP   Protocol = "TCP"
	ProtocolUDP   Protocol = "UDP"
	ProtocolDNS   Protocol = "DNS"
	ProtocolSMTP  Protocol = "SMTP"
	ProtocolSSL   Protocol = "SSL"
	ProtocolPING  Protocol = "PING"
)

func (p Protocol) Valid() bool {
	switch p {
	case ProtocolHTTP, ProtocolHTTPS, ProtocolTCP, ProtocolUDP, ProtocolDNS, ProtocolSMTP, ProtocolSSL, ProtocolPING:
		return true
	default:
		return false
	}
}

// MonitorStatus is the monitor's current derived state.
type MonitorStatus string

const (
	MonitorStatusUp       MonitorStatus = "up"
	MonitorStatusDown     MonitorStatus = "down"
	MonitorStatusDegraded MonitorStatus = "degraded"
	MonitorStatusPaused   MonitorStatus = "paused"
	MonitorStatusUnknown  MonitorStatus = "unknown"
)

// Monitor is a configured probe target, owned exclusively by its OwnerID.
//
// repository.MonitorRepository.Delete removes a Monitor together with its
// Check, Incident, Availability and AlertRule rows. It does not touch
// suppression keys, the in-memory health history or queued scheduler jobs
// (internal/scheduler's Cancel removes the latter).
type Monitor struct {
	BaseModel

	OwnerID uuid.UUID `gorm:"type:char(36);not null;index:idx_monitors_owner" json:"ownerId"`
	Name    string    `gorm:"type:varchar(255);not null" json:"name"`

	Protocol Protocol `gorm:"type:varchar(16);not null;uniqueIndex:idx_monitors_owner_target_protocol" json:"protocol"`
	Target   string   `gorm:"type:varchar(1024);not null;uniqueIndex:idx_monitors_owner_target_protocol" json:"target"`
	Port     int      `gorm:"default:0" json:"port,omitempty"`

	IntervalMinutes        int  `gorm:"not null;default:5" json:"intervalMinutes"`
	TimeoutMs              int  `gorm:"not null;default:10000" json:"timeoutMs"`
	DegradedThresholdMs    int  `gorm:"default:0" json:"degradedThresholdMs"`
	SSLExpiryThresholdDays int  `gorm:"default:30" json:"sslExpiryThresholdDays"`
	AlertThreshold         int  `gorm:"not null;default:2" json:"alertThreshold"`
	IsActive               bool `gorm:"not null;default:true;index:idx_monitors_active" json:"isActive"`

	// HTTP-specific configuration, unused by other protocols.
	HTTPMethod       string `gorm:"type:varchar(16);default:'GET'" json:"httpMethod,omitempty"`
	HTTPExpectStatus int    `gorm:"default:0" json:"httpExpectStatus,omitempty"`

	// Notification routing.
	ContactEmails SliceString  `gorm:"type:text" json:"contactEmails,omitempty"`
	SlackWebhook  SecretString `gorm:"type:text" json:"-"`
	SMSNumbers    SliceString  `gorm:"type:text" json:"smsNumbers,omitempty"`
	Webhook       SecretString `gorm:"type:text" json:"-"`

	// Derived/runtime state, written only by the Worker's atomic update (§4.E).
	Status               MonitorStatus `gorm:"type:varchar(16);not null;default:'unknown'" json:"status"`
	TotalChecks          int64         `gorm:"not null;default:0" json:"totalChecks"`
	SuccessfulChecks     int64         `gorm:"not null;default:0" json:"successfulChecks"`
	ConsecutiveFailures  int           `gorm:"not null;default:0" json:"consecutiveFailures"`
	ConsecutiveDegraded  int           `gorm:"not null;default:0" json:"consecutiveDegraded"`
	ConsecutiveSlowCount int           `gorm:"not null;default:0" json:"consecutiveSlowCount"`
	ConsecutiveSuccesses int           `gorm:"not null;default:0" json:"consecutiveSuccesses"`
	LastChecked          *time.Time    `json:"lastChecked,omitempty"`
	LastResponseTimeMs   int           `gorm:"default:0" json:"lastResponseTimeMs"`
}

func (Monitor) TableName() string { return "monitors" }

// EffectiveLatencyThreshold returns the evaluator's effective threshold for
// this monitor per §4.C: the monitor override when set and positive,
// otherwise the protocol default. A threshold <= 0 (explicitly configured)
// disables the latency rule entirely, signalled by returning 0.
func (m *Monitor) EffectiveLatencyThreshold() int {
	if m.DegradedThresholdMs != 0 {
		if m.DegradedThresholdMs < 0 {
			return 0
		}
		return m.DegradedThresholdMs
	}
	switch m.Protocol {
	case ProtocolHTTP, ProtocolHTTPS:
		return 5000
	case ProtocolPING:
		return 1500
	case ProtocolDNS:
		return 2000
	case ProtocolTCP, ProtocolUDP, ProtocolSMTP, ProtocolSSL:
		return 3000
	default:
		return 5000
	}
}

// ReliabilityScore is the baseline reliability term used by the evaluator's
// confidence calculation (§4.C).
func (m *Monitor) ReliabilityScore() float64 {
	if m.TotalChecks == 0 {
		return 0.5
	}
	return float64(m.SuccessfulChecks) / float64(m.TotalChecks)
}
