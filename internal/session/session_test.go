package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth replays whatever is sent on states.
type fakeAuth struct {
	states chan *identity.User
}

func (f *fakeAuth) WatchAuthState(ctx context.Context, _ string) (*stream.Subscription[*identity.User], error) {
	return stream.Start(ctx, func(ctx context.Context, emit func(*identity.User) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-f.states:
				if !ok || !emit(u) {
					return
				}
			}
		}
	}), nil
}

// fakeDocs hands out one controllable feed per watched uid.
type fakeDocs struct {
	mu      sync.Mutex
	feeds   map[string]chan *docstore.Document
	watched []string
	open    int
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{feeds: make(map[string]chan *docstore.Document)}
}

func (f *fakeDocs) feed(uid string) chan *docstore.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.feeds[uid] == nil {
		f.feeds[uid] = make(chan *docstore.Document, 8)
	}
	return f.feeds[uid]
}

func (f *fakeDocs) WatchDocument(ctx context.Context, collection, id string) (*stream.Subscription[*docstore.Document], error) {
	feed := f.feed(id)
	f.mu.Lock()
	f.watched = append(f.watched, collection+"/"+id)
	f.open++
	f.mu.Unlock()

	return stream.Start(ctx, func(ctx context.Context, emit func(*docstore.Document) bool) {
		defer func() {
			f.mu.Lock()
			f.open--
			f.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-feed:
				if !ok || !emit(d) {
					return
				}
			}
		}
	}), nil
}

func (f *fakeDocs) openWatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeDocs) watchedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.watched...)
}

func next(t *testing.T, sub *stream.Subscription[*session.CurrentUser]) *session.CurrentUser {
	t.Helper()
	select {
	case v, ok := <-sub.C:
		require.True(t, ok, "session stream completed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session value")
		return nil
	}
}

func expectSilence(t *testing.T, sub *stream.Subscription[*session.CurrentUser]) {
	t.Helper()
	select {
	case v, ok := <-sub.C:
		if ok {
			t.Fatalf("unexpected session value: %+v", v)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func profileDoc(uid string, data map[string]any) *docstore.Document {
	return &docstore.Document{Collection: session.UsersCollection, ID: uid, Data: data}
}

func TestSubscribe_MergesIdentityAndProfile(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User, 4)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)
	defer sub.Close()

	ana := &identity.User{UID: "u1", Email: "a@x.com", DisplayName: "Ana", Claims: map[string]any{}}
	auth.states <- ana
	docs.feed("u1") <- profileDoc("u1", map[string]any{
		"name":     "Ana Maria",
		"is_admin": true,
		"sectors":  []any{"legal"},
	})

	current := next(t, sub)
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.UID())
	assert.True(t, current.IsAdmin())
	assert.Equal(t, []string{"legal"}, current.Sectors())
	assert.Equal(t, []string{"users/u1"}, docs.watchedPaths())

	body, err := current.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"uid": "u1", "id": "u1", "email": "a@x.com", "display_name": "Ana",
		"claims": {}, "name": "Ana Maria", "is_admin": true, "sectors": ["legal"]
	}`, string(body))
}

func TestSubscribe_SignOutEmitsNilAndDropsProfileWatch(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User, 4)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)
	defer sub.Close()

	auth.states <- &identity.User{UID: "u1"}
	docs.feed("u1") <- profileDoc("u1", map[string]any{"name": "Ana"})
	require.NotNil(t, next(t, sub))

	auth.states <- nil
	assert.Nil(t, next(t, sub))
	assert.Equal(t, 0, docs.openWatches())

	docs.feed("u1") <- profileDoc("u1", map[string]any{"name": "stale"})
	expectSilence(t, sub)
	assert.Len(t, docs.watchedPaths(), 1, "signed-out state must not query the store")
}

func TestSubscribe_SwitchesIdentity(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User, 4)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)
	defer sub.Close()

	auth.states <- &identity.User{UID: "u1"}
	docs.feed("u1") <- profileDoc("u1", map[string]any{"name": "Ana"})
	require.Equal(t, "u1", next(t, sub).UID())

	auth.states <- &identity.User{UID: "u2"}
	docs.feed("u2") <- profileDoc("u2", map[string]any{"name": "Bia"})
	current := next(t, sub)
	assert.Equal(t, "u2", current.UID())
	assert.Equal(t, "Bia", current.Profile["name"])

	docs.feed("u1") <- profileDoc("u1", map[string]any{"name": "stale"})
	expectSilence(t, sub)
	assert.Equal(t, 1, docs.openWatches())
}

func TestSubscribe_MissingProfileFallsBackToClaims(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User, 1)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)
	defer sub.Close()

	auth.states <- &identity.User{UID: "u1", Claims: map[string]any{identity.ClaimAdmin: true}}
	docs.feed("u1") <- nil

	current := next(t, sub)
	require.NotNil(t, current)
	assert.Nil(t, current.Profile)
	assert.True(t, current.IsAdmin())
	assert.Empty(t, current.Sectors())
}

func TestSubscribe_CompletesWithAuthState(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)

	close(auth.states)
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session stream did not complete")
	}
}

func TestSubscribe_CompletesWhenProfileWatchEnds(t *testing.T) {
	auth := &fakeAuth{states: make(chan *identity.User, 1)}
	docs := newFakeDocs()
	p := session.NewProvider(auth, docs)

	sub, err := p.Subscribe(context.Background(), "sid")
	require.NoError(t, err)
	defer sub.Close()

	auth.states <- &identity.User{UID: "u1"}
	close(docs.feed("u1"))

	select {
	case v, ok := <-sub.C:
		assert.False(t, ok, "unexpected session value: %+v", v)
	case <-time.After(2 * time.Second):
		t.Fatal("session stream kept waiting after the profile watch ended")
	}
	assert.Equal(t, 0, docs.openWatches())
}
