package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/database"
	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	store string
	feed  string
}

func NewHealthHandler(store, feed string) *HealthHandler {
	return &HealthHandler{store: store, feed: feed}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if database.DB == nil {
		dbStatus = "disabled"
	} else if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Store:     h.store,
		Feed:      h.feed,
	})
}
