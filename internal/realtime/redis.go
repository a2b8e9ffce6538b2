// Package realtime fans out change notifications to other devices of the
// same team through a Redis pub/sub channel.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Operations carried by an Event.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Event announces that a row changed on the backend.
type Event struct {
	Table     string    `json:"table"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id,omitempty"`
	Op        string    `json:"op"`
	At        time.Time `json:"at"`
}

// Publisher writes events to one channel.
type Publisher struct {
	client  *redis.Client
	channel string
}

// Connect opens the Redis client and pings it. Callers treat an error as
// "run without realtime".
func Connect(ctx context.Context, addr, channel string) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return &Publisher{client: client, channel: channel}, nil
}

func (p *Publisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Subscribe delivers decoded events to fn until ctx is done. Malformed
// messages are dropped.
func (p *Publisher) Subscribe(ctx context.Context, fn func(Event)) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				continue
			}
			fn(e)
		}
	}
}

func (p *Publisher) Close() error { return p.client.Close() }
