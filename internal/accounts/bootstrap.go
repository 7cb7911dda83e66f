package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
)

// Bootstrap makes sure an administrator account exists so that the first
// users can be created. An existing account keeps its password.
func (s *Service) Bootstrap(ctx context.Context, email, password, name string) error {
	user, err := s.ids.GetUserByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		user, err = s.ids.CreateUser(ctx, identity.NewUser{Email: email, Password: password, DisplayName: name})
		if err != nil {
			return fmt.Errorf("failed to create admin identity: %w", err)
		}
		slog.Info("bootstrap admin created", "uid", user.UID, "email", user.Email)
	} else if err != nil {
		return fmt.Errorf("failed to look up admin identity: %w", err)
	}

	if !user.IsAdmin() {
		if err := s.ids.SetCustomClaims(ctx, user.UID, map[string]any{identity.ClaimAdmin: true}); err != nil {
			return fmt.Errorf("failed to set admin claim: %w", err)
		}
	}

	_, err = s.docs.Get(ctx, UsersCollection, user.UID)
	if errors.Is(err, docstore.ErrNotFound) {
		fields, err := docstore.ToMap(UserRecord{
			EmailAddress: user.Email,
			Name:         name,
			IsAdmin:      true,
			Sectors:      []string{},
		})
		if err != nil {
			return err
		}
		if err := s.docs.Set(ctx, UsersCollection, user.UID, fields); err != nil {
			return fmt.Errorf("failed to write admin record: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read admin record: %w", err)
	}
	return s.docs.Update(ctx, UsersCollection, user.UID, map[string]any{"is_admin": true})
}
