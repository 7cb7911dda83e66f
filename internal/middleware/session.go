package middleware

import (
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/guard"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/i18n"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/gofiber/fiber/v2"
)

const currentUserKey = "current_user"

// RequireSession runs the route guard for the caller's session. Browsers
// are redirected to the sign-in route; API clients get a 401 that names it.
func RequireSession(g *guard.Guard) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := ""
		if caller := GetCaller(c); caller != nil {
			sessionID = caller.SessionID
		}

		decision, err := g.Check(c.UserContext(), sessionID)
		if err != nil {
			slog.Error("session check failed", "session_id", sessionID, "error", err)
			return fiber.ErrInternalServerError
		}

		if !decision.Allowed {
			if strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
				return c.Redirect(decision.Redirect, fiber.StatusFound)
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:    true,
				Message:  Localizer(c).T(i18n.SignInRequired),
				Redirect: decision.Redirect,
			})
		}

		c.Locals(currentUserKey, decision.User)
		return c.Next()
	}
}

// GetCurrentUser returns the user admitted by RequireSession.
func GetCurrentUser(c *fiber.Ctx) *session.CurrentUser {
	user, _ := c.Locals(currentUserKey).(*session.CurrentUser)
	return user
}
