package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/accounts"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/attachments"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/config"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/database"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/feed"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/guard"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/identity"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/logging"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/records"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/routes"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/session"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.UsePostgres() && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	ctx := context.Background()

	// Storage
	var (
		store       docstore.Store
		identities  identity.Repository
		dbLog       *logging.DBHandler
		cleanupDone = make(chan struct{})
	)
	if cfg.UsePostgres() {
		if err := database.Connect(cfg); err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		dbLog = logging.NewDBHandler(database.DB)
		slog.SetDefault(slog.New(logging.NewMultiHandler(logging.NewStdoutHandler(), dbLog)))
		logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

		store = docstore.NewGormStore(database.DB)
		identities = identity.NewGormRepository(database.DB)
	} else {
		slog.Warn("running with the in-memory store; data is lost on restart")
		store = docstore.NewMemoryStore()
		identities = identity.NewMemoryRepository()
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		slog.Error("change feed connection failed", "feed", cfg.ChangeFeed, "error", err)
		os.Exit(1)
	}

	// Services
	live := docstore.NewLive(store, broker)
	idp := identity.NewProvider(identities, broker, identity.Config{
		Secret:        cfg.JWTSecret,
		AccessExpiry:  cfg.JWTAccessExpiry,
		RefreshExpiry: cfg.JWTRefreshExpiry,
	})
	accountService := accounts.NewService(idp, live)
	sessions := session.NewProvider(idp, live)
	routeGuard := guard.New(sessions, cfg.SignInRoute)
	citizens := records.NewService(records.CitizensCollection, live)
	customers := records.NewService(records.CustomersCollection, live)

	if cfg.AdminEmail != "" {
		if err := accountService.Bootstrap(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
			slog.Error("admin bootstrap failed", "email", cfg.AdminEmail, "error", err)
			os.Exit(1)
		}
	}

	var attachmentsHandler *handlers.AttachmentsHandler
	if cfg.MinioEndpoint != "" {
		bucket, err := attachments.NewMinioBucket(attachments.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err == nil {
			err = bucket.EnsureBucket(ctx)
		}
		if err != nil {
			slog.Error("attachment storage unavailable", "endpoint", cfg.MinioEndpoint, "error", err)
			os.Exit(1)
		}
		attachmentsHandler = handlers.NewAttachmentsHandler(
			attachments.NewService(bucket, citizens, cfg.AttachmentURLExpiry),
		)
	} else {
		slog.Warn("MINIO_ENDPOINT not set; citizen attachments are disabled")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(idp, "/")
	healthHandler := handlers.NewHealthHandler(cfg.StoreDriver, cfg.ChangeFeed)
	rpcHandler := handlers.NewRPCHandler(accountService)
	sessionHandler := handlers.NewSessionHandler(sessions)
	citizensHandler := handlers.NewRecordsHandler(citizens, handlers.CitizenMessages)
	customersHandler := handlers.NewRecordsHandler(customers, handlers.CustomerMessages)
	usersHandler := handlers.NewUsersHandler(accountService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    16 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})
	app.Use(middleware.Locale())

	// Routes
	routes.Setup(app, cfg, routeGuard, authHandler, healthHandler, rpcHandler, sessionHandler,
		citizensHandler, customersHandler, usersHandler, attachmentsHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "feed", cfg.ChangeFeed)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Closing the broker ends every open live subscription.
	if err := broker.Close(); err != nil {
		slog.Error("change feed close error", "error", err)
	}

	close(cleanupDone)
	if dbLog != nil {
		dbLog.Stop()
	}
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func newBroker(ctx context.Context, cfg *config.Config) (feed.Broker, error) {
	switch cfg.ChangeFeed {
	case "redis":
		return feed.NewRedisBroker(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case "nats":
		return feed.NewNATSBroker(cfg.NATSURL)
	default:
		return feed.NewMemoryBroker(), nil
	}
}

// customErrorHandler answers errors returned by handlers and middleware.
// Server errors never expose their cause.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{
		Error:   true,
		Message: message,
	})
}
