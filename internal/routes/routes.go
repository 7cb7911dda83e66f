package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/config"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/guard"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	g *guard.Guard,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	rpcHandler *handlers.RPCHandler,
	sessionHandler *handlers.SessionHandler,
	citizensHandler *handlers.RecordsHandler,
	customersHandler *handlers.RecordsHandler,
	usersHandler *handlers.UsersHandler,
	attachmentsHandler *handlers.AttachmentsHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP. Event streams are
	// long-lived and skip it.
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Next:              isEventStream,
	}))

	api.Get("/health", healthHandler.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Account operations: anonymous callers reach the handlers, which answer
	// with PERMISSION_DENIED.
	rpc := api.Group("/rpc", middleware.CallableJWT(cfg))
	rpc.Post("/addUser", rpcHandler.AddUser)
	rpc.Post("/updateUser", rpcHandler.UpdateUser)
	rpc.Post("/changePassword", rpcHandler.ChangePassword)
	rpc.Post("/delUser", rpcHandler.DeleteUser)

	// Everything below sits behind the route guard.
	guarded := api.Group("", middleware.OptionalJWT(cfg), middleware.RequireSession(g))

	guarded.Get("/session/me", sessionHandler.Me)
	guarded.Get("/session/stream", sessionHandler.Stream)

	registerRecords(guarded.Group("/citizens"), citizensHandler)
	registerRecords(guarded.Group("/customers"), customersHandler)

	if attachmentsHandler != nil {
		files := guarded.Group("/citizens/:id/files")
		files.Get("/", attachmentsHandler.List)
		files.Post("/", attachmentsHandler.Upload)
		files.Delete("/:name", attachmentsHandler.Remove)
	}

	guarded.Get("/users", usersHandler.List)
	guarded.Get("/users/:id", usersHandler.Get)
}

// registerRecords mounts the list, edit and export views of one collection.
// Static paths go before /:id.
func registerRecords(r fiber.Router, h *handlers.RecordsHandler) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/stream", h.Stream)
	r.Get("/export", middleware.AdminRequired(), h.Export)
	r.Get("/:id", h.Get)
	r.Put("/:id", h.Update)
	r.Delete("/:id", h.Delete)
}

func isEventStream(c *fiber.Ctx) bool {
	return c.Get(fiber.HeaderAccept) == "text/event-stream"
}
