package guard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/guard"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSessions emits values in order and then stays open until closed.
type fakeSessions struct {
	values   []*session.CurrentUser
	complete bool
	closed   chan struct{}
	err      error
}

func (f *fakeSessions) Subscribe(ctx context.Context, _ string) (*stream.Subscription[*session.CurrentUser], error) {
	if f.err != nil {
		return nil, f.err
	}
	return stream.Start(ctx, func(ctx context.Context, emit func(*session.CurrentUser) bool) {
		defer close(f.closed)
		for _, v := range f.values {
			if !emit(v) {
				return
			}
		}
		if !f.complete {
			<-ctx.Done()
		}
	}), nil
}

func TestCheck_AllowsSignedInUser(t *testing.T) {
	user := &session.CurrentUser{Identity: &identity.User{UID: "u1"}}
	src := &fakeSessions{
		values: []*session.CurrentUser{user, nil},
		closed: make(chan struct{}),
	}

	d, err := guard.New(src, "").Check(context.Background(), "sid")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Same(t, user, d.User)
	assert.Empty(t, d.Redirect)

	select {
	case <-src.closed:
	case <-time.After(time.Second):
		t.Fatal("guard left the session stream open")
	}
}

func TestCheck_RedirectsSignedOut(t *testing.T) {
	src := &fakeSessions{values: []*session.CurrentUser{nil}, closed: make(chan struct{})}

	d, err := guard.New(src, "/entrar").Check(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Nil(t, d.User)
	assert.Equal(t, "/entrar", d.Redirect)
}

func TestCheck_RedirectsWhenStreamCompletesEmpty(t *testing.T) {
	src := &fakeSessions{complete: true, closed: make(chan struct{})}

	d, err := guard.New(src, "").Check(context.Background(), "sid")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, guard.DefaultSignInRoute, d.Redirect)
}

func TestCheck_HonoursContext(t *testing.T) {
	src := &fakeSessions{closed: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := guard.New(src, "").Check(ctx, "sid")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCheck_SubscribeError(t *testing.T) {
	boom := errors.New("boom")
	_, err := guard.New(&fakeSessions{err: boom}, "").Check(context.Background(), "sid")
	assert.ErrorIs(t, err, boom)
}

func TestNew_DefaultRoute(t *testing.T) {
	assert.Equal(t, guard.DefaultSignInRoute, guard.New(&fakeSessions{}, "").SignInRoute())
}
