package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/accounts"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type UserDirectory interface {
	ListUsers(ctx context.Context, viewer accounts.Viewer) ([]docstore.Document, error)
	GetUser(ctx context.Context, viewer accounts.Viewer, uid string) (*docstore.Document, error)
}

// UsersHandler serves the users list and edit views. Writes go through the
// account RPC endpoints.
type UsersHandler struct {
	users UserDirectory
}

func NewUsersHandler(users UserDirectory) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	docs, err := h.users.ListUsers(c.UserContext(), middleware.GetCurrentUser(c))
	if err != nil {
		return fail(c, err, "")
	}
	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, userView(doc))
	}
	return c.JSON(fiber.Map{"items": items, "total": len(items)})
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	doc, err := h.users.GetUser(c.UserContext(), middleware.GetCurrentUser(c), c.Params("id"))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(userView(*doc))
}

// userView flattens a users document into its fields plus the id.
func userView(doc docstore.Document) map[string]any {
	out := make(map[string]any, len(doc.Data)+1)
	for k, v := range doc.Data {
		out[k] = v
	}
	out["id"] = doc.ID
	return out
}
