package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/i18n"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*identity.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error)
	SignOut(ctx context.Context, sessionID string) error
}

type AuthHandler struct {
	auth      Authenticator
	homeRoute string
}

func NewAuthHandler(auth Authenticator, homeRoute string) *AuthHandler {
	return &AuthHandler{auth: auth, homeRoute: homeRoute}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	tokens, err := h.auth.SignIn(c.UserContext(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if !errors.Is(err, identity.ErrInvalidCredentials) {
			report(c, err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: middleware.Localizer(c).T(i18n.LoginFailed),
		})
	}

	slog.Info("user signed in", "uid", tokens.User.UID, "session_id", tokens.SessionID)
	return c.JSON(authResponse(tokens, h.homeRoute))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		}
		report(c, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(authResponse(tokens, ""))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	caller := middleware.GetCaller(c)
	if caller == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	if err := h.auth.SignOut(c.UserContext(), caller.SessionID); err != nil {
		report(c, err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

func authResponse(t *identity.Tokens, redirect string) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		User:         t.User,
		Redirect:     redirect,
	}
}
