// Package accounts implements the privileged account operations: creating,
// updating and deleting users and changing passwords. Each operation writes
// to the identity provider and the users collection in sequence; a failure
// at one step does not undo the steps before it.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/validation"
)

const UsersCollection = "users"

// IdentityAdmin is the part of the identity provider the account
// operations use.
type IdentityAdmin interface {
	CreateUser(ctx context.Context, in identity.NewUser) (*identity.User, error)
	GetUser(ctx context.Context, uid string) (*identity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*identity.User, error)
	UpdatePassword(ctx context.Context, uid, password string) error
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
	DeleteUser(ctx context.Context, uid string) error
}

// UserRecord is the users document of an account.
type UserRecord struct {
	EmailAddress string   `json:"email_address"`
	Name         string   `json:"name"`
	IsAdmin      bool     `json:"is_admin"`
	Sectors      []string `json:"sectors"`
}

type AddUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	IsAdmin  *bool    `json:"is_admin"`
	Sectors  []string `json:"sectors" validate:"dive,sector"`
}

type AddUserResult struct {
	UID     string `json:"uid"`
	Message string `json:"message"`
}

type UpdateUserRequest struct {
	UID     string   `json:"uid" validate:"required"`
	Name    string   `json:"name" validate:"required"`
	IsAdmin *bool    `json:"is_admin"`
	Sectors []string `json:"sectors" validate:"dive,sector"`
}

type ChangePasswordRequest struct {
	UID      string `json:"uid"`
	Password string `json:"password" validate:"required"`
}

type DeleteUserRequest struct {
	UID string `json:"uid" validate:"required"`
}

type MessageResult struct {
	Message string `json:"message"`
}

type Service struct {
	ids  IdentityAdmin
	docs docstore.Store
}

func NewService(ids IdentityAdmin, docs docstore.Store) *Service {
	return &Service{ids: ids, docs: docs}
}

// AddUser provisions an identity, writes its users document and, for
// administrators, sets the admin claim.
func (s *Service) AddUser(ctx context.Context, caller *identity.Caller, req AddUserRequest) (res *AddUserResult, err error) {
	defer func() { observe("addUser", err) }()

	if !caller.IsAdmin() {
		return nil, apperr.Authorization("Must be an administrative user to create users.")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.ids.CreateUser(ctx, identity.NewUser{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailExists):
			return nil, apperr.Conflict("The email address is already in use by another account.", err)
		case errors.Is(err, identity.ErrInvalidPassword):
			return nil, apperr.ValidationFields("invalid input", map[string]string{"password": err.Error()})
		case errors.Is(err, identity.ErrInvalidEmail):
			return nil, apperr.ValidationFields("invalid input", map[string]string{"email": err.Error()})
		}
		return nil, s.internal("addUser", "", "Error creating new user.", err)
	}

	isAdmin := req.IsAdmin != nil && *req.IsAdmin
	fields, err := docstore.ToMap(UserRecord{
		EmailAddress: user.Email,
		Name:         req.Name,
		IsAdmin:      isAdmin,
		Sectors:      nonNil(req.Sectors),
	})
	if err != nil {
		return nil, s.internal("addUser", user.UID, "Error creating new user.", err)
	}
	if err := s.docs.Set(ctx, UsersCollection, user.UID, fields); err != nil {
		return nil, s.internal("addUser", user.UID, "Error creating new user.", err)
	}

	if isAdmin {
		if err := s.ids.SetCustomClaims(ctx, user.UID, map[string]any{identity.ClaimAdmin: true}); err != nil {
			return nil, s.internal("addUser", user.UID, "Error creating new user.", err)
		}
	}

	return &AddUserResult{
		UID:     user.UID,
		Message: fmt.Sprintf("Successfully created new user: %s", user.UID),
	}, nil
}

// UpdateUser updates the users document of the target, then sets the admin
// claim of the target identity to match.
func (s *Service) UpdateUser(ctx context.Context, caller *identity.Caller, req UpdateUserRequest) (res *MessageResult, err error) {
	defer func() { observe("updateUser", err) }()

	if !caller.IsAdmin() {
		return nil, apperr.Authorization("Must be an administrative user to update users.")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	isAdmin := req.IsAdmin != nil && *req.IsAdmin
	err = s.docs.Update(ctx, UsersCollection, req.UID, map[string]any{
		"name":     req.Name,
		"is_admin": isAdmin,
		"sectors":  nonNil(req.Sectors),
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, s.internal("updateUser", req.UID, "Error updating user.", err)
	}

	if err := s.ids.SetCustomClaims(ctx, req.UID, map[string]any{identity.ClaimAdmin: isAdmin}); err != nil {
		return nil, s.internal("updateUser", req.UID, "Error saving claims for user.", err)
	}

	return &MessageResult{Message: fmt.Sprintf("Successfully updated user: %s", req.UID)}, nil
}

// ChangePassword lets a user replace their own password.
func (s *Service) ChangePassword(ctx context.Context, caller *identity.Caller, req ChangePasswordRequest) (res *MessageResult, err error) {
	defer func() { observe("changePassword", err) }()

	if caller == nil || req.UID == "" || caller.UID != req.UID {
		return nil, apperr.Authorization("Can only change your own password.")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	err = s.ids.UpdatePassword(ctx, req.UID, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, identity.ErrInvalidPassword):
		return nil, apperr.ValidationFields("invalid input", map[string]string{"password": err.Error()})
	case errors.Is(err, identity.ErrUserNotFound):
		return nil, apperr.NotFound("User not found.")
	default:
		return nil, s.internal("changePassword", req.UID, "Error updating password.", err)
	}

	return &MessageResult{Message: fmt.Sprintf("Successfully updated password: %s", req.UID)}, nil
}

// DeleteUser removes the identity first and then its users document.
func (s *Service) DeleteUser(ctx context.Context, caller *identity.Caller, req DeleteUserRequest) (res *MessageResult, err error) {
	defer func() { observe("delUser", err) }()

	if !caller.IsAdmin() {
		return nil, apperr.Authorization("Must be an administrative user to remove users.")
	}
	if req.UID == caller.UID {
		return nil, apperr.Authorization("Cannot self remove")
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	err = s.ids.DeleteUser(ctx, req.UID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, s.internal("delUser", req.UID, "Error removing user.", err)
	}

	if err := s.docs.Delete(ctx, UsersCollection, req.UID); err != nil {
		return nil, s.internal("delUser", req.UID, "Error removing user.", err)
	}

	return &MessageResult{Message: fmt.Sprintf("Successfully removed user: %s", req.UID)}, nil
}

func (s *Service) internal(op, uid, message string, err error) error {
	slog.Error(message,
		"op", op,
		"uid", uid,
		"error", err,
	)
	return apperr.Internal(message, err)
}

func nonNil(sectors []string) []string {
	if sectors == nil {
		return []string{}
	}
	return sectors
}
