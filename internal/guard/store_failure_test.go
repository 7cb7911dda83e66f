package guard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/guard"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableStore fails every point read.
type unreachableStore struct {
	*docstore.MemoryStore
}

func (unreachableStore) Get(context.Context, string, string) (*docstore.Document, error) {
	return nil, errors.New("connection reset")
}

func TestCheck_ProfileReadFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	broker := feed.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	ids := identity.NewProvider(identity.NewMemoryRepository(), broker, identity.Config{
		Secret:        "test-secret",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	_, err := ids.CreateUser(ctx, identity.NewUser{Email: "ana@example.com", Password: "secret123", DisplayName: "Ana"})
	require.NoError(t, err)
	tokens, err := ids.SignIn(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)

	live := docstore.NewLive(unreachableStore{docstore.NewMemoryStore()}, broker)
	g := guard.New(session.NewProvider(ids, live), "/login")

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	d, err := g.Check(checkCtx, tokens.SessionID)
	require.NoError(t, err, "guard must resolve without waiting for the deadline")
	assert.False(t, d.Allowed)
	assert.Equal(t, "/login", d.Redirect)
}
