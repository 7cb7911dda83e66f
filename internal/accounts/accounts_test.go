package accounts_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/accounts"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ids   *identity.Provider
	docs  *docstore.MemoryStore
	svc   *accounts.Service
	admin *identity.Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	broker := feed.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	ids := identity.NewProvider(identity.NewMemoryRepository(), broker, identity.Config{
		Secret:        "test-secret",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
	})
	docs := docstore.NewMemoryStore()
	return &fixture{
		ids:   ids,
		docs:  docs,
		svc:   accounts.NewService(ids, docs),
		admin: &identity.Caller{UID: "admin-uid", Claims: map[string]any{identity.ClaimAdmin: true}},
	}
}

func (f *fixture) userCount(t *testing.T) int {
	t.Helper()
	docs, err := f.docs.Query(context.Background(), accounts.UsersCollection, docstore.Query{})
	require.NoError(t, err)
	return len(docs)
}

func boolPtr(b bool) *bool { return &b }

func ana() accounts.AddUserRequest {
	return accounts.AddUserRequest{
		Email:    "a@x.com",
		Password: "pw123456",
		Name:     "Ana",
		IsAdmin:  boolPtr(false),
		Sectors:  []string{"legal"},
	}
}

// claimFailer fails every SetCustomClaims call.
type claimFailer struct {
	accounts.IdentityAdmin
}

func (claimFailer) SetCustomClaims(context.Context, string, map[string]any) error {
	return errors.New("claims backend unavailable")
}

// setFailer fails every Set call.
type setFailer struct {
	docstore.Store
}

func (setFailer) Set(context.Context, string, string, map[string]any) error {
	return errors.New("store unavailable")
}

// deleteFailer fails every Delete call.
type deleteFailer struct {
	docstore.Store
}

func (deleteFailer) Delete(context.Context, string, string) error {
	return errors.New("store unavailable")
}

func TestAddUser_CreatesIdentityAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)
	assert.NotEmpty(t, res.UID)
	assert.Contains(t, res.Message, res.UID)

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, res.UID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"email_address": "a@x.com",
		"name":          "Ana",
		"is_admin":      false,
		"sectors":       []any{"legal"},
	}, doc.Data)

	user, err := f.ids.GetUser(ctx, res.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Empty(t, user.Claims, "no custom claim for non-admins")
}

func TestAddUser_AdminGetsClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := ana()
	req.IsAdmin = boolPtr(true)
	res, err := f.svc.AddUser(ctx, f.admin, req)
	require.NoError(t, err)

	user, err := f.ids.GetUser(ctx, res.UID)
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
}

func TestAddUser_DefaultsOptionalFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.AddUser(ctx, f.admin, accounts.AddUserRequest{Email: "b@x.com", Password: "pw123456", Name: "Bia"})
	require.NoError(t, err)

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, res.UID)
	require.NoError(t, err)
	assert.Equal(t, false, doc.Data["is_admin"])
	assert.Equal(t, []any{}, doc.Data["sectors"])
}

func TestAddUser_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for name, caller := range map[string]*identity.Caller{
		"anonymous": nil,
		"no claim":  {UID: "u1", Claims: map[string]any{}},
		"false":     {UID: "u1", Claims: map[string]any{identity.ClaimAdmin: false}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.AddUser(ctx, caller, ana())
			assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		})
	}

	_, err := f.ids.GetUserByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	assert.Zero(t, f.userCount(t))
}

func TestAddUser_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*accounts.AddUserRequest){
		"missing email":    func(r *accounts.AddUserRequest) { r.Email = "" },
		"missing password": func(r *accounts.AddUserRequest) { r.Password = "" },
		"missing name":     func(r *accounts.AddUserRequest) { r.Name = "" },
		"unknown sector":   func(r *accounts.AddUserRequest) { r.Sectors = []string{"finance"} },
		"short password":   func(r *accounts.AddUserRequest) { r.Password = "123" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := ana()
			mutate(&req)
			_, err := f.svc.AddUser(ctx, f.admin, req)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}
	assert.Zero(t, f.userCount(t))
}

func TestAddUser_DuplicateEmailIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)
	require.Equal(t, 1, f.userCount(t))

	_, err = f.svc.AddUser(ctx, f.admin, ana())
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, 1, f.userCount(t))
}

func TestAddUser_RecordFailureLeavesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := accounts.NewService(f.ids, setFailer{f.docs})

	_, err := svc.AddUser(ctx, f.admin, ana())
	require.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, "Error creating new user.", apperr.PublicMessage(err))

	_, err = f.ids.GetUserByEmail(ctx, "a@x.com")
	assert.NoError(t, err, "identity is not rolled back")
}

func TestUpdateUser_UpdatesRecordThenClaim(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)

	res, err := f.svc.UpdateUser(ctx, f.admin, accounts.UpdateUserRequest{
		UID:     created.UID,
		Name:    "Ana B",
		IsAdmin: boolPtr(true),
		Sectors: []string{"legal", "administrative"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Message, created.UID)

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, created.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", doc.Data["name"])
	assert.Equal(t, true, doc.Data["is_admin"])
	assert.Equal(t, []any{"legal", "administrative"}, doc.Data["sectors"])
	assert.Equal(t, "a@x.com", doc.Data["email_address"])

	target, err := f.ids.GetUser(ctx, created.UID)
	require.NoError(t, err)
	assert.True(t, target.IsAdmin(), "claim is set on the target, not the caller")
}

func TestUpdateUser_ClaimFailureKeepsRecordUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)

	svc := accounts.NewService(claimFailer{f.ids}, f.docs)
	_, err = svc.UpdateUser(ctx, f.admin, accounts.UpdateUserRequest{
		UID:     created.UID,
		Name:    "Ana B",
		IsAdmin: boolPtr(true),
		Sectors: []string{"legal", "administrative"},
	})
	require.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Equal(t, "Error saving claims for user.", apperr.PublicMessage(err))

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, created.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ana B", doc.Data["name"])
	assert.Equal(t, true, doc.Data["is_admin"])

	target, err := f.ids.GetUser(ctx, created.UID)
	require.NoError(t, err)
	assert.False(t, target.IsAdmin())
}

func TestUpdateUser_RequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)

	self := &identity.Caller{UID: created.UID, Claims: map[string]any{}}
	_, err = f.svc.UpdateUser(ctx, self, accounts.UpdateUserRequest{UID: created.UID, Name: "X", IsAdmin: boolPtr(true)})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, created.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", doc.Data["name"])
	target, err := f.ids.GetUser(ctx, created.UID)
	require.NoError(t, err)
	assert.False(t, target.IsAdmin())
}

func TestUpdateUser_UnknownTarget(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateUser(context.Background(), f.admin, accounts.UpdateUserRequest{UID: "missing", Name: "X"})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)
	self := &identity.Caller{UID: created.UID}

	t.Run("other user", func(t *testing.T) {
		_, err := f.svc.ChangePassword(ctx, f.admin, accounts.ChangePasswordRequest{UID: created.UID, Password: "hijacked"})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
		_, err = f.ids.SignIn(ctx, "a@x.com", "pw123456")
		assert.NoError(t, err, "password unchanged")
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := f.svc.ChangePassword(ctx, nil, accounts.ChangePasswordRequest{UID: created.UID, Password: "hijacked"})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	})

	t.Run("missing password", func(t *testing.T) {
		_, err := f.svc.ChangePassword(ctx, self, accounts.ChangePasswordRequest{UID: created.UID})
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("own password", func(t *testing.T) {
		res, err := f.svc.ChangePassword(ctx, self, accounts.ChangePasswordRequest{UID: created.UID, Password: "new-secret"})
		require.NoError(t, err)
		assert.Contains(t, res.Message, created.UID)

		_, err = f.ids.SignIn(ctx, "a@x.com", "new-secret")
		assert.NoError(t, err)
	})
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)

	_, err = f.svc.DeleteUser(ctx, &identity.Caller{UID: "someone"}, accounts.DeleteUserRequest{UID: created.UID})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.Equal(t, 1, f.userCount(t))

	res, err := f.svc.DeleteUser(ctx, f.admin, accounts.DeleteUserRequest{UID: created.UID})
	require.NoError(t, err)
	assert.Contains(t, res.Message, created.UID)

	_, err = f.ids.GetUser(ctx, created.UID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	assert.Zero(t, f.userCount(t))
}

func TestDeleteUser_RejectsSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, caller := range []*identity.Caller{
		f.admin,
		{UID: "admin-uid", Claims: map[string]any{}},
	} {
		_, err := f.svc.DeleteUser(ctx, caller, accounts.DeleteUserRequest{UID: caller.UID})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	}
}

func TestDeleteUser_RecordFailureKeepsIdentityDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)

	svc := accounts.NewService(f.ids, deleteFailer{f.docs})
	_, err = svc.DeleteUser(ctx, f.admin, accounts.DeleteUserRequest{UID: created.UID})
	require.True(t, apperr.Is(err, apperr.KindInternal))

	_, err = f.ids.GetUser(ctx, created.UID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
	assert.Equal(t, 1, f.userCount(t), "record survives")
}

func TestBootstrap_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Bootstrap(ctx, "root@x.com", "pw123456", "Root"))
	require.NoError(t, f.svc.Bootstrap(ctx, "root@x.com", "other-password", "Root"))

	user, err := f.ids.GetUserByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())

	doc, err := f.docs.Get(ctx, accounts.UsersCollection, user.UID)
	require.NoError(t, err)
	assert.Equal(t, true, doc.Data["is_admin"])

	_, err = f.ids.SignIn(ctx, "root@x.com", "pw123456")
	assert.NoError(t, err, "existing password is kept")
}

type viewer struct {
	uid   string
	admin bool
}

func (v viewer) UID() string   { return v.uid }
func (v viewer) IsAdmin() bool { return v.admin }

func TestListAndGetUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.AddUser(ctx, f.admin, ana())
	require.NoError(t, err)
	b, err := f.svc.AddUser(ctx, f.admin, accounts.AddUserRequest{Email: "b@x.com", Password: "pw123456", Name: "Bia"})
	require.NoError(t, err)

	all, err := f.svc.ListUsers(ctx, viewer{uid: "root", admin: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.ListUsers(ctx, viewer{uid: a.UID})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, a.UID, own[0].ID)

	_, err = f.svc.GetUser(ctx, viewer{uid: a.UID}, b.UID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	doc, err := f.svc.GetUser(ctx, viewer{uid: "root", admin: true}, b.UID)
	require.NoError(t, err)
	assert.Equal(t, "Bia", doc.Data["name"])

	_, err = f.svc.GetUser(ctx, viewer{uid: "root", admin: true}, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
