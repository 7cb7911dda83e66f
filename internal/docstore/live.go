package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var liveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "docstore_live_subscriptions",
	Help: "Number of open document and query watches",
})

type ChangeOp string

const (
	ChangeSet    ChangeOp = "set"
	ChangeUpdate ChangeOp = "update"
	ChangeDelete ChangeOp = "delete"
)

// Change is published on feed.TopicDocumentChanges after every write.
type Change struct {
	Collection string   `json:"collection"`
	ID         string   `json:"id"`
	Op         ChangeOp `json:"op"`
}

// Live is a Store that announces its writes and supports live watches.
type Live struct {
	Store
	broker feed.Broker
}

func NewLive(store Store, broker feed.Broker) *Live {
	return &Live{Store: store, broker: broker}
}

func (l *Live) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id, err := l.Store.Add(ctx, collection, data)
	if err != nil {
		return "", err
	}
	l.publish(ctx, Change{Collection: collection, ID: id, Op: ChangeSet})
	return id, nil
}

func (l *Live) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if err := l.Store.Set(ctx, collection, id, data); err != nil {
		return err
	}
	l.publish(ctx, Change{Collection: collection, ID: id, Op: ChangeSet})
	return nil
}

func (l *Live) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := l.Store.Update(ctx, collection, id, fields); err != nil {
		return err
	}
	l.publish(ctx, Change{Collection: collection, ID: id, Op: ChangeUpdate})
	return nil
}

func (l *Live) Delete(ctx context.Context, collection, id string) error {
	if err := l.Store.Delete(ctx, collection, id); err != nil {
		return err
	}
	l.publish(ctx, Change{Collection: collection, ID: id, Op: ChangeDelete})
	return nil
}

// publish never fails the write that triggered it.
func (l *Live) publish(ctx context.Context, c Change) {
	payload, err := json.Marshal(c)
	if err != nil {
		slog.Error("failed to encode change", "error", err)
		return
	}
	if err := l.broker.Publish(ctx, feed.TopicDocumentChanges, payload); err != nil {
		slog.Error("failed to publish change",
			"collection", c.Collection,
			"id", c.ID,
			"error", err,
		)
	}
}

// WatchDocument emits the current document, or nil while it does not exist,
// and again after every change to it.
func (l *Live) WatchDocument(ctx context.Context, collection, id string) (*stream.Subscription[*Document], error) {
	if err := checkPath(collection, id); err != nil {
		return nil, err
	}
	return watch(ctx, l, func(c Change) bool {
		return c.Collection == collection && c.ID == id
	}, func(ctx context.Context) (*Document, error) {
		doc, err := l.Store.Get(ctx, collection, id)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return doc, err
	})
}

// WatchQuery emits the result set of q and again after every change in
// the collection.
func (l *Live) WatchQuery(ctx context.Context, collection string, q Query) (*stream.Subscription[[]Document], error) {
	if err := checkPath(collection); err != nil {
		return nil, err
	}
	return watch(ctx, l, func(c Change) bool {
		return c.Collection == collection
	}, func(ctx context.Context) ([]Document, error) {
		return l.Store.Query(ctx, collection, q)
	})
}

// watch subscribes to the change feed before the first read so that no
// write between the read and the subscription is missed.
func watch[T any](ctx context.Context, l *Live, relevant func(Change) bool, read func(context.Context) (T, error)) (*stream.Subscription[T], error) {
	changes, err := l.broker.Subscribe(ctx, feed.TopicDocumentChanges)
	if err != nil {
		return nil, err
	}

	liveSubscriptions.Inc()
	return stream.Start(ctx, func(ctx context.Context, emit func(T) bool) {
		defer liveSubscriptions.Dec()
		defer changes.Close()

		v, err := read(ctx)
		if err != nil {
			slog.Error("live read failed", "error", err)
			return
		}
		if !emit(v) {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-changes.C:
				if !ok {
					return
				}
				var c Change
				if err := json.Unmarshal(payload, &c); err != nil {
					slog.Warn("dropping malformed change", "error", err)
					continue
				}
				if !relevant(c) {
					continue
				}
				v, err := read(ctx)
				if err != nil {
					if ctx.Err() == nil {
						slog.Error("live read failed", "collection", c.Collection, "error", err)
					}
					return
				}
				if !emit(v) {
					return
				}
			}
		}
	}), nil
}
