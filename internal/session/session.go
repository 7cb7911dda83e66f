// Package session merges the authentication state of a session with the
// users document of the signed-in identity into one live current-user value.
package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
)

// UsersCollection holds one profile document per identity, keyed by uid.
const UsersCollection = "users"

type AuthStateSource interface {
	WatchAuthState(ctx context.Context, sessionID string) (*stream.Subscription[*identity.User], error)
}

type DocumentWatcher interface {
	WatchDocument(ctx context.Context, collection, id string) (*stream.Subscription[*docstore.Document], error)
}

// CurrentUser is a signed-in identity merged with its profile document.
type CurrentUser struct {
	Identity *identity.User
	// Profile holds the users document fields; nil when the document does
	// not exist.
	Profile map[string]any
}

func (u *CurrentUser) UID() string {
	return u.Identity.UID
}

// IsAdmin prefers the profile flag and falls back to the admin claim.
func (u *CurrentUser) IsAdmin() bool {
	if v, ok := u.Profile["is_admin"].(bool); ok {
		return v
	}
	return u.Identity.IsAdmin()
}

func (u *CurrentUser) Sectors() []string {
	raw, _ := u.Profile["sectors"].([]any)
	sectors := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			sectors = append(sectors, s)
		}
	}
	return sectors
}

// MarshalJSON renders the shallow merge of the identity and the profile,
// with profile fields taking precedence.
func (u *CurrentUser) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"uid":          u.Identity.UID,
		"email":        u.Identity.Email,
		"display_name": u.Identity.DisplayName,
		"claims":       u.Identity.Claims,
	}
	for k, v := range u.Profile {
		out[k] = v
	}
	if u.Profile != nil {
		out["id"] = u.Identity.UID
	}
	return json.Marshal(out)
}

type Provider struct {
	auth AuthStateSource
	docs DocumentWatcher
}

func NewProvider(auth AuthStateSource, docs DocumentWatcher) *Provider {
	return &Provider{auth: auth, docs: docs}
}

// Subscribe follows the current user of a session. Each identity emitted by
// the auth state replaces the previous profile watch, which is closed before
// the next one opens, so values of a superseded identity are never emitted.
// A signed-out state emits nil without reading the store. The stream
// completes with the auth state, or when the profile watch of the current
// identity ends, for instance after a failed store read.
func (p *Provider) Subscribe(ctx context.Context, sessionID string) (*stream.Subscription[*CurrentUser], error) {
	auth, err := p.auth.WatchAuthState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return stream.Start(ctx, func(ctx context.Context, emit func(*CurrentUser) bool) {
		defer auth.Close()

		var (
			user    *identity.User
			profile *stream.Subscription[*docstore.Document]
			docs    <-chan *docstore.Document
		)
		stop := func() {
			if profile != nil {
				profile.Close()
				profile, docs = nil, nil
			}
		}
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return

			case u, ok := <-auth.C:
				stop()
				if !ok {
					return
				}
				user = u
				if u == nil {
					if !emit(nil) {
						return
					}
					continue
				}
				watch, err := p.docs.WatchDocument(ctx, UsersCollection, u.UID)
				if err != nil {
					slog.Error("failed to watch user profile", "uid", u.UID, "error", err)
					return
				}
				profile, docs = watch, watch.C

			case doc, ok := <-docs:
				if !ok {
					// The profile watch of the current identity ended on its
					// own, so nothing more can be emitted for it.
					slog.Warn("user profile watch ended", "uid", user.UID)
					return
				}
				current := &CurrentUser{Identity: user}
				if doc != nil {
					current.Profile = doc.Data
				}
				if !emit(current) {
					return
				}
			}
		}
	}), nil
}

// Current returns the first value of the session's current-user stream.
func (p *Provider) Current(ctx context.Context, sessionID string) (*CurrentUser, error) {
	sub, err := p.Subscribe(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	user, _, err := stream.First(ctx, sub)
	return user, err
}
