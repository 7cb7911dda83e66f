package accounts

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
)

// Viewer is the signed-in user reading account records.
type Viewer interface {
	UID() string
	IsAdmin() bool
}

// ListUsers returns every users document to administrators and only the
// viewer's own document to everyone else.
func (s *Service) ListUsers(ctx context.Context, viewer Viewer) ([]docstore.Document, error) {
	if viewer.IsAdmin() {
		docs, err := s.docs.Query(ctx, UsersCollection, docstore.Query{OrderBy: "name"})
		if err != nil {
			return nil, apperr.Internal("Error loading users.", err)
		}
		return docs, nil
	}

	doc, err := s.docs.Get(ctx, UsersCollection, viewer.UID())
	if errors.Is(err, docstore.ErrNotFound) {
		return []docstore.Document{}, nil
	}
	if err != nil {
		return nil, apperr.Internal("Error loading users.", err)
	}
	return []docstore.Document{*doc}, nil
}

func (s *Service) GetUser(ctx context.Context, viewer Viewer, uid string) (*docstore.Document, error) {
	if uid != viewer.UID() && !viewer.IsAdmin() {
		return nil, apperr.Authorization("Can only view your own account.")
	}
	doc, err := s.docs.Get(ctx, UsersCollection, uid)
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return nil, apperr.NotFound("User not found.")
	}
	if err != nil {
		return nil, apperr.Internal("Error loading user.", err)
	}
	return doc, nil
}
