package middleware

import (
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired must run after RequireSession. The administrator flag comes
// from the merged current user: the profile is_admin field, else the admin
// claim.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetCurrentUser(c)
		if user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access required",
			})
		}
		return c.Next()
	}
}
