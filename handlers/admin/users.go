package admin

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"gorm.io/gorm"
)

// ListUsersRequest represents the query parameters for listing users
type ListUsersRequest struct {
	Page    int    `query:"page"`
	Limit   int    `query:"limit"`
	Role    string `query:"role"`
	Search  string `query:"search"`
	Blocked string `query:"blocked"`
	Sort    string `query:"sort"`
	SortDir string `query:"sort_dir"`
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

var sortableUserColumns = map[string]bool{"created_at": true, "name": true, "email": true}

// ListUsers retrieves all users with pagination and filters
// GET /admin/users
func ListUsers(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	var req ListUsersRequest
	if err := c.QueryParser(&req); err != nil {
		return response.BadRequest(c, "Invalid query parameters")
	}

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	if !sortableUserColumns[req.Sort] {
		req.Sort = "created_at"
	}
	if req.SortDir != "asc" && req.SortDir != "desc" {
		req.SortDir = "desc"
	}

	query := db.Model(&model.User{})
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.Blocked != "" {
		query = query.Where("is_blocked = ?", req.Blocked == "true")
	}
	if req.Search != "" {
		searchTerm := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return response.InternalServerError(c, "Failed to count users")
	}

	users := []model.User{}
	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Order(req.Sort + " " + req.SortDir).Find(&users).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch users")
	}

	return response.Paginated(c, users, response.CalculatePagination(req.Page, req.Limit, total))
}

// GetUser retrieves a specific user with activity counts
// GET /admin/users/:id
func GetUser(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}

	var stats struct {
		CoursesAuthored int64 `json:"courses_authored"`
		Enrollments     int64 `json:"enrollments"`
		Reviews         int64 `json:"reviews"`
		ChatMessages    int64 `json:"chat_messages"`
	}
	db.Model(&model.Course{}).Where("tutor_id = ?", userID).Count(&stats.CoursesAuthored)
	db.Model(&model.Enrollment{}).Where("user_id = ?", userID).Count(&stats.Enrollments)
	db.Model(&model.Review{}).Where("user_id = ?", userID).Count(&stats.Reviews)
	db.Model(&model.ChatMessage{}).Where("user_id = ?", userID).Count(&stats.ChatMessages)

	return response.SuccessWithMessage(c, "User retrieved successfully", fiber.Map{
		"user":  user,
		"stats": stats,
	})
}

// SetUserBlocked returns a handler that blocks or unblocks a user.
// Blocking also invalidates every token the user holds.
// PATCH /admin/users/:id/block, PATCH /admin/users/:id/unblock
func SetUserBlocked(store database.Storage, blacklist *auth.BlacklistService, blocked bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := store.DB().WithContext(c.UserContext())

		userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid user ID")
		}
		if actorID, _ := middleware.GetUserID(c); actorID == uint(userID) {
			return response.InvalidAction(c, "Cannot block your own account")
		}

		var user model.User
		if err := db.First(&user, userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return response.NotFound(c, "User not found")
			}
			return response.InternalServerError(c, "Failed to fetch user")
		}
		if user.Role == model.RoleAdmin {
			return response.InvalidAction(c, "Admins cannot be blocked")
		}

		if err := db.Model(&user).UpdateColumn("is_blocked", blocked).Error; err != nil {
			return response.InternalServerError(c, "Failed to update user")
		}
		if blocked {
			if err := blacklist.RevokeAllUserTokens(c.UserContext(), user.ID); err != nil {
				return response.InternalServerError(c, "Failed to revoke user sessions")
			}
		}
		user.IsBlocked = blocked

		msg := "User unblocked successfully"
		if blocked {
			msg = "User blocked successfully"
		}
		return response.SuccessWithMessage(c, msg, user)
	}
}

// UpdateUserRole promotes or demotes a user between user and moderator
// PATCH /admin/users/:id/role
func UpdateUserRole(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	userID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Role != model.RoleUser && req.Role != model.RoleModerator {
		return response.BadRequest(c, "Role must be user or moderator")
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return response.NotFound(c, "User not found")
		}
		return response.InternalServerError(c, "Failed to fetch user")
	}
	if user.Role == model.RoleAdmin {
		return response.InvalidAction(c, "Admin role cannot be changed")
	}

	if err := db.Model(&user).UpdateColumn("role", req.Role).Error; err != nil {
		return response.InternalServerError(c, "Failed to update user")
	}
	user.Role = req.Role

	return response.SuccessWithMessage(c, "User role updated successfully", user)
}

// GetUserStats retrieves overall user statistics
// GET /admin/users/stats
func GetUserStats(c *fiber.Ctx, store database.Storage) error {
	db := store.DB().WithContext(c.UserContext())

	var stats struct {
		TotalUsers   int64 `json:"total_users"`
		Admins       int64 `json:"admins"`
		Moderators   int64 `json:"moderators"`
		Blocked      int64 `json:"blocked"`
		Tutors       int64 `json:"tutors"`
		Learners     int64 `json:"learners"`
		NewThisMonth int64 `json:"new_this_month"`
	}

	db.Model(&model.User{}).Count(&stats.TotalUsers)
	db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&stats.Admins)
	db.Model(&model.User{}).Where("role = ?", model.RoleModerator).Count(&stats.Moderators)
	db.Model(&model.User{}).Where("is_blocked = ?", true).Count(&stats.Blocked)
	db.Model(&model.Course{}).Distinct("tutor_id").Count(&stats.Tutors)
	db.Model(&model.Enrollment{}).Distinct("user_id").Count(&stats.Learners)
	db.Model(&model.User{}).Where("created_at >= ?", startOfMonth()).Count(&stats.NewThisMonth)

	return response.SuccessWithMessage(c, "User statistics retrieved successfully", stats)
}
