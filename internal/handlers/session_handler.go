package handlers

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/gofiber/fiber/v2"
)

type SessionSource interface {
	Subscribe(ctx context.Context, sessionID string) (*stream.Subscription[*session.CurrentUser], error)
}

type SessionHandler struct {
	sessions SessionSource
}

func NewSessionHandler(sessions SessionSource) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Me returns the merged identity and profile admitted by the guard.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.GetCurrentUser(c))
}

// Stream follows the session: a new value after every profile or claim
// change, and null followed by the end event after sign-out.
func (h *SessionHandler) Stream(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return fiber.ErrUnauthorized
	}
	sub, err := h.sessions.Subscribe(context.Background(), caller.SessionID)
	if err != nil {
		return fail(c, err, "")
	}
	return serveEvents(c, sub)
}
