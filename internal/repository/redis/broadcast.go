package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crossply/crossply/internal/domain"
)

const broadcastChannelPrefix = "broadcast:user:"

// Broadcaster publishes real-time events over Redis pub/sub. Each user
// has their own channel; socket gateways subscribe per connected user.
type Broadcaster struct {
	client *Client
}

// NewBroadcaster creates a new broadcaster
func NewBroadcaster(client *Client) *Broadcaster {
	return &Broadcaster{client: client}
}

// Publish sends the event to the recipient's channel. Delivery is best
// effort: with no subscriber the event is dropped, the persisted
// notification remains the durable record.
func (b *Broadcaster) Publish(ctx context.Context, event domain.BroadcastEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := broadcastChannelPrefix + event.RecipientUserID.String()
	if err := b.client.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe returns a channel of events for one user. The caller owns
// the returned cancel function; closing the context ends the stream.
func (b *Broadcaster) Subscribe(ctx context.Context, userID string) (<-chan domain.BroadcastEvent, error) {
	sub := b.client.rdb.Subscribe(ctx, broadcastChannelPrefix+userID)

	// Confirm the subscription before handing out the channel.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events := make(chan domain.BroadcastEvent)
	go func() {
		defer close(events)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var event domain.BroadcastEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}
