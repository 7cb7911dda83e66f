package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
)

// fail writes err as an error response. A non-empty toast replaces the
// public message; per-field details are kept either way.
func fail(c *fiber.Ctx, err error, toast string) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		report(c, err)
	}

	message := apperr.PublicMessage(err)
	if toast != "" {
		message = toast
	}
	return c.Status(kind.HTTPStatus()).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
		Details: apperr.DetailsOf(err),
	})
}

func failCallable(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		report(c, err)
	}
	return c.Status(kind.HTTPStatus()).JSON(dto.CallableErrorResponse{
		Error: dto.CallableError{
			Status:  kind.CallableStatus(),
			Message: apperr.PublicMessage(err),
			Details: apperr.DetailsOf(err),
		},
	})
}

func report(c *fiber.Ctx, err error) {
	attrs := []any{"method", c.Method(), "path", c.Path(), "error", err}
	if caller := middleware.GetCaller(c); caller != nil {
		attrs = append(attrs, "uid", caller.UID)
	}
	if rid, ok := c.Locals("requestid").(string); ok {
		attrs = append(attrs, "request_id", rid)
	}
	slog.Error("request failed", attrs...)

	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}
