package middleware

import (
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/config"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const callerKey = "caller"

// EventSource clients cannot set headers, so the token may also travel in
// the access_token query parameter.
const tokenLookup = "header:Authorization,query:access_token"

// JWTProtected rejects requests without a valid access token.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup:    tokenLookup,
		SuccessHandler: storeCaller,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// OptionalJWT lets anonymous requests through and resolves the caller when
// a token is present. Requests carrying an invalid token are treated as
// anonymous, so the session guard decides what happens to them.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return optionalJWT(cfg, func(c *fiber.Ctx, err error) error {
		return c.Next()
	})
}

// CallableJWT is OptionalJWT for the account RPC endpoints: an invalid token
// is answered with an UNAUTHENTICATED callable error.
func CallableJWT(cfg *config.Config) fiber.Handler {
	return optionalJWT(cfg, func(c *fiber.Ctx, err error) error {
		kind := apperr.KindUnauthenticated
		return c.Status(kind.HTTPStatus()).JSON(dto.CallableErrorResponse{
			Error: dto.CallableError{
				Status:  kind.CallableStatus(),
				Message: "Unauthorized: invalid or expired token",
			},
		})
	})
}

func optionalJWT(cfg *config.Config, onError fiber.ErrorHandler) fiber.Handler {
	return jwtware.New(jwtware.Config{
		Filter: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderAuthorization) == "" && c.Query("access_token") == ""
		},
		SigningKey:     jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup:    tokenLookup,
		SuccessHandler: storeCaller,
		ErrorHandler:   onError,
	})
}

func storeCaller(c *fiber.Ctx) error {
	token, _ := c.Locals("user").(*jwt.Token)
	caller, err := identity.CallerFromToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error:   true,
			Message: "Unauthorized: invalid token claims",
		})
	}
	c.Locals(callerKey, caller)
	return c.Next()
}

// GetCaller returns the verified caller, or nil for anonymous requests.
func GetCaller(c *fiber.Ctx) *identity.Caller {
	caller, _ := c.Locals(callerKey).(*identity.Caller)
	return caller
}
