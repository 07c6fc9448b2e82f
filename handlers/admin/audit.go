package admin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"gorm.io/gorm"
)

func actorPreview(q *gorm.DB) *gorm.DB {
	return q.Select("id", "name", "email", "role")
}

// ListAuditLogs retrieves admin audit logs with pagination
// GET /admin/audit-logs
func ListAuditLogs(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	action := c.Query("action")
	resource := c.Query("resource")
	actorIDStr := c.Query("actor_id")

	query := db.Model(&model.AdminAuditLog{})
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if actorIDStr != "" {
		if actorID, err := strconv.ParseUint(actorIDStr, 10, 32); err == nil {
			query = query.Where("actor_id = ?", actorID)
		}
	}

	var total int64
	query.Session(&gorm.Session{}).Count(&total)

	logs := []model.AdminAuditLog{}
	offset := (page - 1) * limit
	if err := query.Preload("Actor", actorPreview).Offset(offset).Limit(limit).Order("created_at DESC").Find(&logs).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch audit logs")
	}

	return response.Paginated(c, logs, response.CalculatePagination(page, limit, total))
}

// GetAuditLog retrieves a specific audit log entry
// GET /admin/audit-logs/:id
func GetAuditLog(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	logID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid log ID")
	}

	var entry model.AdminAuditLog
	if err := db.Preload("Actor", actorPreview).First(&entry, logID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "Audit log not found")
		}
		return response.InternalServerError(c, "Failed to fetch audit log")
	}

	return response.SuccessWithMessage(c, "Audit log retrieved successfully", entry)
}
