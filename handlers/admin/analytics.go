package admin

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"gorm.io/gorm"
)

func startOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// GetOverviewAnalytics retrieves marketplace-wide counts
// GET /admin/analytics/overview
func GetOverviewAnalytics(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	var stats struct {
		TotalUsers        int64 `json:"total_users"`
		CoursesCreating   int64 `json:"courses_creating"`
		CoursesPending    int64 `json:"courses_pending"`
		CoursesPublished  int64 `json:"courses_published"`
		CoursesBlocked    int64 `json:"courses_blocked"`
		TotalEnrollments  int64 `json:"total_enrollments"`
		Revenue           int64 `json:"revenue"`
		RevenueThisMonth  int64 `json:"revenue_this_month"`
		TotalChatMessages int64 `json:"total_chat_messages"`
		CartMismatches    int64 `json:"cart_mismatches"`
	}

	db.Model(&model.User{}).Count(&stats.TotalUsers)
	db.Model(&model.Course{}).Where("status = ?", model.CourseStatusCreating).Count(&stats.CoursesCreating)
	db.Model(&model.Course{}).Where("status = ?", model.CourseStatusPending).Count(&stats.CoursesPending)
	db.Model(&model.Course{}).Where("status = ?", model.CourseStatusPublished).Count(&stats.CoursesPublished)
	db.Model(&model.Course{}).Where("is_blocked = ?", true).Count(&stats.CoursesBlocked)
	db.Model(&model.Enrollment{}).Count(&stats.TotalEnrollments)
	db.Model(&model.Enrollment{}).Select("COALESCE(SUM(price), 0)").Scan(&stats.Revenue)
	db.Model(&model.Enrollment{}).Where("created_at >= ?", startOfMonth()).Select("COALESCE(SUM(price), 0)").Scan(&stats.RevenueThisMonth)
	db.Model(&model.ChatMessage{}).Count(&stats.TotalChatMessages)
	db.Model(&model.ProcessedPaymentEvent{}).Where("cart_mismatch = ?", true).Count(&stats.CartMismatches)

	return response.SuccessWithMessage(c, "Overview analytics retrieved successfully", stats)
}

// ListPaymentEvents pages through processed payment events, optionally only mismatches
// GET /admin/analytics/payments?mismatch=true
func ListPaymentEvents(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := db.Model(&model.ProcessedPaymentEvent{})
	if c.Query("mismatch") == "true" {
		query = query.Where("cart_mismatch = ?", true)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count payment events")
	}

	events := []model.ProcessedPaymentEvent{}
	if err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&events).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch payment events")
	}

	return response.Paginated(c, events, response.CalculatePagination(page, limit, total))
}
