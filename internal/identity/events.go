package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
)

type AuthEventType string

const (
	EventSignedOut   AuthEventType = "signed_out"
	EventUserUpdated AuthEventType = "user_updated"
	EventUserDeleted AuthEventType = "user_deleted"
)

// AuthEvent is published on feed.TopicAuthEvents.
type AuthEvent struct {
	Type      AuthEventType `json:"type"`
	UID       string        `json:"uid"`
	SessionID string        `json:"session_id,omitempty"`
}

func (p *Provider) publish(ctx context.Context, event AuthEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to encode auth event", "error", err)
		return
	}
	if err := p.broker.Publish(ctx, feed.TopicAuthEvents, payload); err != nil {
		slog.Error("failed to publish auth event",
			"type", event.Type,
			"uid", event.UID,
			"error", err,
		)
	}
}

// WatchAuthState follows the authentication state of a session. It emits
// the signed-in user, or nil when the session is unknown, revoked or
// expired, and emits again after the user's claims change. After sign-out,
// deletion of the user or session expiry it emits nil and completes.
func (p *Provider) WatchAuthState(ctx context.Context, sessionID string) (*stream.Subscription[*User], error) {
	events, err := p.broker.Subscribe(ctx, feed.TopicAuthEvents)
	if err != nil {
		return nil, err
	}

	return stream.Start(ctx, func(ctx context.Context, emit func(*User) bool) {
		defer events.Close()

		user, expiresAt, err := p.sessionUser(ctx, sessionID)
		if err != nil {
			slog.Error("failed to resolve session", "session_id", sessionID, "error", err)
			return
		}
		if !emit(user) || user == nil {
			return
		}

		expiry := time.NewTimer(time.Until(expiresAt))
		defer expiry.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-expiry.C:
				emit(nil)
				return
			case payload, ok := <-events.C:
				if !ok {
					return
				}
				var event AuthEvent
				if err := json.Unmarshal(payload, &event); err != nil {
					slog.Warn("dropping malformed auth event", "error", err)
					continue
				}

				switch {
				case event.Type == EventSignedOut && event.SessionID == sessionID,
					event.Type == EventUserDeleted && event.UID == user.UID:
					emit(nil)
					return
				case event.Type == EventUserUpdated && event.UID == user.UID:
					updated, err := p.GetUser(ctx, user.UID)
					if errors.Is(err, ErrUserNotFound) {
						emit(nil)
						return
					}
					if err != nil {
						slog.Error("failed to reload user", "uid", user.UID, "error", err)
						continue
					}
					user = updated
					if !emit(user) {
						return
					}
				}
			}
		}
	}), nil
}

// sessionUser returns nil without error when the session does not grant
// access.
func (p *Provider) sessionUser(ctx context.Context, sessionID string) (*User, time.Time, error) {
	if sessionID == "" {
		return nil, time.Time{}, nil
	}
	session, err := p.repo.GetSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	if session.Revoked || !p.now().Before(session.ExpiresAt) {
		return nil, time.Time{}, nil
	}

	user, err := p.GetUser(ctx, session.UID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return user, session.ExpiresAt, nil
}
