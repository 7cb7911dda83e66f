package feed

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/nats-io/nats.go"
)

// NATSBroker maps topics onto core NATS subjects.
type NATSBroker struct {
	nc *nats.Conn
}

func NewNATSBroker(url string) (*NATSBroker, error) {
	nc, err := nats.Connect(url, nats.Name("citizen-admin"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return &NATSBroker{nc: nc}, nil
}

func (b *NATSBroker) Publish(_ context.Context, topic string, payload []byte) error {
	return b.nc.Publish(topic, payload)
}

func (b *NATSBroker) Subscribe(ctx context.Context, topic string) (*stream.Subscription[[]byte], error) {
	msgs := make(chan *nats.Msg, memoryBufferSize)
	sub, err := b.nc.ChanSubscribe(topic, msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	// Make sure the server registered the interest before returning.
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	return stream.Start(ctx, func(ctx context.Context, emit func([]byte) bool) {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				if !emit(msg.Data) {
					return
				}
			}
		}
	}), nil
}

func (b *NATSBroker) Close() error {
	return b.nc.Drain()
}
