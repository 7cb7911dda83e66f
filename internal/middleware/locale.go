package middleware

import (
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/i18n"
	"github.com/gofiber/fiber/v2"
)

const localizerKey = "localizer"

// Locale resolves the toast language from Accept-Language.
func Locale() fiber.Handler {
	return func(c *fiber.Ctx) error {
		l := i18n.FromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
		c.Locals(localizerKey, l)
		c.Set(fiber.HeaderContentLanguage, l.Tag().String())
		return c.Next()
	}
}

// Localizer returns the request's localizer, defaulting to Brazilian
// Portuguese when Locale did not run.
func Localizer(c *fiber.Ctx) i18n.Localizer {
	if l, ok := c.Locals(localizerKey).(i18n.Localizer); ok {
		return l
	}
	return i18n.FromAcceptLanguage(c.Get(fiber.HeaderAcceptLanguage))
}
