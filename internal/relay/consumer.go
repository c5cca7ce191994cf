package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/cache"
)

// Event is the decoded payload of one monitor_updates_stream entry (§6's
// worker-output contract). Decoupled from internal/worker.MonitorUpdate by
// JSON tag rather than a shared type, the same pattern internal/alert uses
// for CheckedResult.
type Event struct {
	MonitorID  uuid.UUID `json:"monitorId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	Status     string    `json:"status"`
	Reasons    []string  `json:"reasons,omitempty"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// readBatch and blockDuration bound every long-poll read (§4.G: "block <=5s,
// batch <=10").
const (
	readBatch     = 10
	blockDuration = 5 * time.Second
)

// Consumer reads monitor_updates_stream as one member of a named consumer
// group and forwards decoded events to a Hub.
type Consumer struct {
	cache      *cache.Client
	hub        *Hub
	group      string
	consumerID string
}

// NewConsumer creates a Consumer. consumerID must be unique per process
// instance within group (e.g. hostname+pid) so the consumer group can track
// per-consumer pending-entry lists correctly.
func NewConsumer(c *cache.Client, hub *Hub, group, consumerID string) *Consumer {
	return &Consumer{cache: c, hub: hub, group: group, consumerID: consumerID}
}

// Run ensures the consumer group exists and then long-polls the stream
// until ctx is cancelled. Unparseable entries are acked with a log rather
// than retried forever, per §4.G.
func (r *Consumer) Run(ctx context.Context) error {
	if err := r.cache.EnsureConsumerGroup(ctx, r.group); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		messages, err := r.cache.ReadGroup(ctx, r.group, r.consumerID, readBatch, blockDuration)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.Errorf("relay: read group %s/%s: %v", r.group, r.consumerID, err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			r.process(ctx, msg)
		}
	}
}

func (r *Consumer) process(ctx context.Context, msg cache.StreamMessage) {
	defer func() {
		if err := r.cache.Ack(ctx, r.group, msg.ID); err != nil {
			logrus.Warnf("relay: ack %s: %v", msg.ID, err)
		}
	}()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logrus.Warnf("relay: dropping unparseable entry %s: %v", msg.ID, err)
		return
	}
	if event.OwnerID == uuid.Nil {
		logrus.Warnf("relay: dropping entry %s with no owner id", msg.ID)
		return
	}

	r.hub.Broadcast(event.OwnerID, event)
}
