package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
)

const memoryBufferSize = 256

// MemoryBroker fans messages out to in-process subscribers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for ch := range b.subs[topic] {
		msg := append([]byte(nil), payload...)
		select {
		case ch <- msg:
		default:
			slog.Warn("feed subscriber too slow, message dropped", "topic", topic)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (*stream.Subscription[[]byte], error) {
	inbox := make(chan []byte, memoryBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][inbox] = struct{}{}
	b.mu.Unlock()

	return stream.Start(ctx, func(ctx context.Context, emit func([]byte) bool) {
		defer b.remove(topic, inbox)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-inbox:
				if !ok {
					return
				}
				if !emit(msg) {
					return
				}
			}
		}
	}), nil
}

func (b *MemoryBroker) remove(topic string, inbox chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[topic]; ok {
		if _, ok := set[inbox]; ok {
			delete(set, inbox)
			close(inbox)
		}
		if len(set) == 0 {
			delete(b.subs, topic)
		}
	}
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, set := range b.subs {
		for inbox := range set {
			close(inbox)
		}
		delete(b.subs, topic)
	}
	return nil
}
