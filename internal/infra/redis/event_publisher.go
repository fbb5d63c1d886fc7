package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-arena/internal/domain"
)

// EventPublisher relays room events over Redis pub/sub so other instances
// (spectator feeds, dashboards) can follow a room they do not own.
// Events are published on: arena:room:{code}:events
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Publish implements app.EventSink.
func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(ctx, EventChannel(event.RoomCode), raw).Err()
}

// Subscribe follows a room's events until ctx is done. The returned channel
// is closed when the subscription ends.
func (p *EventPublisher) Subscribe(ctx context.Context, code string) (<-chan domain.Event, error) {
	sub := p.client.Subscribe(ctx, EventChannel(code))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan domain.Event, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// EventChannel is the pub/sub channel for a room.
func EventChannel(code string) string {
	return "arena:room:" + code + ":events"
}
