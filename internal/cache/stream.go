package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// MonitorUpdatesStream is the Redis Stream name the scheduler/worker publish
// status-change events to and the relay consumes from (§7 real-time relay).
const MonitorUpdatesStream = "monitor_updates_stream"

// StreamMessage is a single decoded entry off monitor_updates_stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// PublishUpdate appends an event to monitor_updates_stream. The stream is
// capped with an approximate MAXLEN so a relay outage never grows it
// unbounded.
func (c *Client) PublishUpdate(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	err = c.raw.XAdd(ctx, &redis.XAddArgs{
		Stream: MonitorUpdatesStream,
		MaxLen: 10000,
		Approx: true,
		Values: map[string]interface{}{"payload": data},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", MonitorUpdatesStream, err)
	}
	return nil
}

// EnsureConsumerGroup creates the named consumer group on
// monitor_updates_stream, starting from the end of the stream ("$") if the
// stream does not exist yet. It is safe to call on every relay startup.
func (c *Client) EnsureConsumerGroup(ctx context.Context, group string) error {
	err := c.raw.XGroupCreateMkStream(ctx, MonitorUpdatesStream, group, "$").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("create consumer group %s: %w", group, err)
	}
	return nil
}

// ReadGroup long-polls monitor_updates_stream as a member of group,
// blocking up to block for up to count new messages (relay fan-out, §7:
// "consumer-group based, block <=5s, batch <=10").
func (c *Client) ReadGroup(ctx context.Context, group, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	streams, err := c.raw.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{MonitorUpdatesStream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("xreadgroup %s/%s: %w", group, consumer, err)
	}

	var out []StreamMessage
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			payload, _ := msg.Values["payload"].(string)
			out = append(out, StreamMessage{ID: msg.ID, Payload: []byte(payload)})
		}
	}
	return out, nil
}

// Ack acknowledges processed messages so they are not redelivered to
// another consumer in the group.
func (c *Client) Ack(ctx context.Context, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.raw.XAck(ctx, MonitorUpdatesStream, group, ids...).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", group, err)
	}
	return nil
}
