package handlers

import (
	"context"
	"encoding/json"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/accounts"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

type AccountService interface {
	AddUser(ctx context.Context, caller *identity.Caller, req accounts.AddUserRequest) (*accounts.AddUserResult, error)
	UpdateUser(ctx context.Context, caller *identity.Caller, req accounts.UpdateUserRequest) (*accounts.MessageResult, error)
	ChangePassword(ctx context.Context, caller *identity.Caller, req accounts.ChangePasswordRequest) (*accounts.MessageResult, error)
	DeleteUser(ctx context.Context, caller *identity.Caller, req accounts.DeleteUserRequest) (*accounts.MessageResult, error)
}

// RPCHandler serves the account operations with the callable envelope:
// {"data": {...}} in, {"result": {...}} or {"error": {...}} out.
type RPCHandler struct {
	accounts AccountService
}

func NewRPCHandler(accounts AccountService) *RPCHandler {
	return &RPCHandler{accounts: accounts}
}

func (h *RPCHandler) AddUser(c *fiber.Ctx) error {
	return serveCallable(c, h.accounts.AddUser)
}

func (h *RPCHandler) UpdateUser(c *fiber.Ctx) error {
	return serveCallable(c, h.accounts.UpdateUser)
}

func (h *RPCHandler) ChangePassword(c *fiber.Ctx) error {
	return serveCallable(c, h.accounts.ChangePassword)
}

func (h *RPCHandler) DeleteUser(c *fiber.Ctx) error {
	return serveCallable(c, h.accounts.DeleteUser)
}

func serveCallable[Req, Res any](c *fiber.Ctx, op func(context.Context, *identity.Caller, Req) (Res, error)) error {
	req, err := decodeCallable[Req](c.Body())
	if err != nil {
		return failCallable(c, err)
	}
	res, err := op(c.UserContext(), middleware.GetCaller(c), req)
	if err != nil {
		return failCallable(c, err)
	}
	return c.JSON(dto.CallableResponse{Result: res})
}

// decodeCallable reads the data member of the envelope. A missing data
// member decodes to the zero request, which the operation then rejects.
func decodeCallable[Req any](body []byte) (Req, error) {
	var (
		env dto.CallableRequest
		req Req
	)
	if err := json.Unmarshal(body, &env); err != nil {
		return req, apperr.Validation("Invalid request body")
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(env.Data, &req); err != nil {
		return req, apperr.Validation("Invalid request data")
	}
	return req, nil
}
