package feed

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/redis/go-redis/v9"
)

// RedisBroker maps topics onto Redis pub/sub channels.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(ctx context.Context, addr, password string) (*RedisBroker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return &RedisBroker{rdb: rdb}, nil
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, payload []byte) error {
	return b.rdb.Publish(ctx, topic, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (*stream.Subscription[[]byte], error) {
	pubsub := b.rdb.Subscribe(ctx, topic)

	// Wait for confirmation so nothing published after Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return stream.Start(ctx, func(ctx context.Context, emit func([]byte) bool) {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if msg == nil {
					continue
				}
				if !emit([]byte(msg.Payload)) {
					return
				}
			}
		}
	}), nil
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
