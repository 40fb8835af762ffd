package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const backplaneChannel = "zapdesk.events"

// Backplane relays hub events through Redis pub/sub so rooms stay coherent
// across instances. Publish failures are logged and dropped; realtime events
// carry no delivery guarantee.
type Backplane struct {
	client *redis.Client
	hub    *Hub
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewBackplane wires the hub to Redis and starts the subscriber loop.
func NewBackplane(client *redis.Client, hub *Hub, logger *zap.Logger) *Backplane {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Backplane{client: client, hub: hub, logger: logger, cancel: cancel}
	hub.SetRelay(b)
	go b.consume(ctx)
	return b
}

// Relay publishes an event to the shared channel.
func (b *Backplane) Relay(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("backplane marshal", zap.Error(err))
		return
	}
	if err := b.client.Publish(context.Background(), backplaneChannel, payload).Err(); err != nil {
		b.logger.Warn("backplane publish", zap.Error(err))
	}
}

// Close stops the subscriber loop.
func (b *Backplane) Close() {
	b.cancel()
}

func (b *Backplane) consume(ctx context.Context) {
	sub := b.client.Subscribe(ctx, backplaneChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warn("backplane decode", zap.Error(err))
				continue
			}
			b.hub.Deliver(event)
		}
	}
}
