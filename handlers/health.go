package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// HandleCheckHealth reports database and, when configured, redis reachability.
// rc may be nil.
func HandleCheckHealth(c *fiber.Ctx, store database.Storage, rc *cache.RedisCache) error {
	checks := fiber.Map{"database": "ok"}
	healthy := true

	if err := store.HealthCheck(); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}

	if rc != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		checks["redis"] = "ok"
		if err := rc.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	if !healthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"status":  "degraded",
			"checks":  checks,
		})
	}
	return response.Success(c, fiber.Map{"status": "ok", "checks": checks})
}
