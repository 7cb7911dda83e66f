// Package guard decides whether a request may reach a protected route.
package guard

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
)

const DefaultSignInRoute = "/login"

type SessionSource interface {
	Subscribe(ctx context.Context, sessionID string) (*stream.Subscription[*session.CurrentUser], error)
}

type Decision struct {
	Allowed  bool
	User     *session.CurrentUser
	Redirect string
}

type Guard struct {
	sessions    SessionSource
	signInRoute string
}

func New(sessions SessionSource, signInRoute string) *Guard {
	if signInRoute == "" {
		signInRoute = DefaultSignInRoute
	}
	return &Guard{sessions: sessions, signInRoute: signInRoute}
}

func (g *Guard) SignInRoute() string {
	return g.signInRoute
}

// Check takes exactly one value from the session stream and closes it.
// A signed-out session, or a stream that completes without a value,
// redirects to the sign-in route.
func (g *Guard) Check(ctx context.Context, sessionID string) (Decision, error) {
	sub, err := g.sessions.Subscribe(ctx, sessionID)
	if err != nil {
		return Decision{}, err
	}
	defer sub.Close()

	user, ok, err := stream.First(ctx, sub)
	if err != nil {
		return Decision{}, err
	}
	if !ok || user == nil {
		return Decision{Redirect: g.signInRoute}, nil
	}
	return Decision{Allowed: true, User: user}, nil
}
