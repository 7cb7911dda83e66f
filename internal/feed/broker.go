// Package feed carries change and auth events between the parts of the
// service, and between instances when backed by Redis or NATS.
package feed

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
)

const (
	// TopicDocumentChanges carries docstore.Change events.
	TopicDocumentChanges = "docstore.changes"
	// TopicAuthEvents carries identity.AuthEvent events.
	TopicAuthEvents = "auth.events"
)

var ErrClosed = errors.New("broker closed")

// Broker is a topic based publish/subscribe transport.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe returns a live subscription to topic. Messages published
	// after Subscribe returns are delivered; the caller must Close it.
	Subscribe(ctx context.Context, topic string) (*stream.Subscription[[]byte], error)
	Close() error
}
