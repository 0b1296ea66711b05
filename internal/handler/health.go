package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis *redis.Client
	db    *sql.DB
}

func NewHealthHandler(redisClient *redis.Client, db *sql.DB) *HealthHandler {
	return &HealthHandler{redis: redisClient, db: db}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	redisStatus := "ok"
	if err := h.redis.Ping(c.Context()).Err(); err != nil {
		redisStatus = "error"
	}

	dbStatus := "ok"
	if err := h.db.PingContext(c.Context()); err != nil {
		dbStatus = "error"
	}

	status := "ok"
	code := fiber.StatusOK
	if redisStatus != "ok" || dbStatus != "ok" {
		status = "warning"
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"dependencies": fiber.Map{
			"redis":    redisStatus,
			"database": dbStatus,
		},
	})
}
