package middleware

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminAuditLog records a moderation action after the handler has run.
// Mount after Required so the acting user is known.
func AdminAuditLog(db *gorm.DB, log *logger.Logger, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetUser(c)
		if !ok {
			return c.Next()
		}

		var resourceID uint
		if id := c.Params("id"); id != "" {
			if parsedID, err := strconv.ParseUint(id, 10, 32); err == nil {
				resourceID = uint(parsedID)
			}
		}

		var body datatypes.JSON
		if raw := c.Body(); len(raw) > 0 && json.Valid(raw) {
			body = datatypes.JSON(append([]byte(nil), raw...))
		}

		err := c.Next()

		entry := model.AdminAuditLog{
			ActorID:    actor.ID,
			Action:     action,
			Resource:   resource,
			ResourceID: resourceID,
			Body:       body,
			Status:     c.Response().StatusCode(),
			IPAddress:  c.IP(),
			UserAgent:  c.Get("User-Agent"),
		}

		if err := db.WithContext(c.UserContext()).Create(&entry).Error; err != nil {
			log.Warn("failed to write audit log", "action", action, "error", err)
		}

		return err
	}
}
