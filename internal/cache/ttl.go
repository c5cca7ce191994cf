package cache

import (
	"context"
	"fmt"
	"time"
)

// Suppression keys prevent re-sending the same alert while a monitor stays
// down, without affecting incident persistence (§4.F, Open Question
// decision in DESIGN.md: suppression gates notifications only).

func suppressionKey(monitorID, alertType string, escalationLevel int) string {
	return fmt.Sprintf("suppression:%s:%s:%d", monitorID, alertType, escalationLevel)
}

// IsSuppressed reports whether a notification for this monitor/alert
// type/escalation level was already sent within its suppression window.
func (c *Client) IsSuppressed(ctx context.Context, monitorID, alertType string, escalationLevel int) (bool, error) {
	return c.Exists(ctx, suppressionKey(monitorID, alertType, escalationLevel))
}

// MarkSuppressed records that a notification was sent, starting a TTL window
// during which further identical notifications are withheld. ttl must be
// positive; a zero or negative TTL would suppress forever.
func (c *Client) MarkSuppressed(ctx context.Context, monitorID, alertType string, escalationLevel int, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("suppression ttl must be positive, got %v", ttl)
	}
	return c.Set(ctx, suppressionKey(monitorID, alertType, escalationLevel), time.Now().Unix(), ttl)
}

// ClearSuppression removes every suppression key for a monitor. Called on
// recovery so the next down transition re-alerts immediately rather than
// waiting out a stale window (invariant: cleared within 1s of recovery).
func (c *Client) ClearSuppression(ctx context.Context, monitorID string) error {
	return c.DeletePattern(ctx, fmt.Sprintf("suppression:%s:*", monitorID))
}

func manualCheckCooldownKey(monitorID string) string {
	return fmt.Sprintf("cooldown:manual-check:%s", monitorID)
}

// TryManualCheckCooldown attempts to start a manual-check cooldown window
// for monitorID, returning false if one is already active (§4.D runNow()
// rate limiting).
func (c *Client) TryManualCheckCooldown(ctx context.Context, monitorID string, cooldown time.Duration) (bool, error) {
	return c.SetNX(ctx, manualCheckCooldownKey(monitorID), time.Now().Unix(), cooldown)
}

const masterLockKey = "scheduler:master-lock"

// AcquireMasterLock attempts to become the active scheduler instance.
// ownerID should uniquely identify this process so a renewal can verify it
// still holds the lock before extending it.
func (c *Client) AcquireMasterLock(ctx context.Context, ownerID string, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, masterLockKey, ownerID, ttl)
}

// RenewMasterLock extends the lock's TTL if and only if ownerID still holds
// it, preventing a stale or slow instance from renewing a lock another
// instance has since acquired.
func (c *Client) RenewMasterLock(ctx context.Context, ownerID string, ttl time.Duration) (bool, error) {
	current, err := c.Get(ctx, masterLockKey)
	if err != nil {
		if err == ErrCacheMiss {
			return false, nil
		}
		return false, err
	}
	if current != ownerID {
		return false, nil
	}
	if err := c.Set(ctx, masterLockKey, ownerID, ttl); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseMasterLock gives up the lock if ownerID still holds it, so a
// graceful shutdown lets the next instance take over immediately instead of
// waiting out the TTL.
func (c *Client) ReleaseMasterLock(ctx context.Context, ownerID string) error {
	current, err := c.Get(ctx, masterLockKey)
	if err != nil {
		if err == ErrCacheMiss {
			return nil
		}
		return err
	}
	if current != ownerID {
		return nil
	}
	return c.Delete(ctx, masterLockKey)
}
