package course

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// ModerationQueue handles GET /api/v1/moderation/courses?status=pending
func (h *CourseHandler) ModerationQueue(c *fiber.Ctx) error {
	status := model.CourseStatus(c.Query("status", string(model.CourseStatusPending)))
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	courses, total, err := h.courses.ModerationQueue(c.UserContext(), status, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, courses, response.CalculatePagination(page, limit, total))
}

// Approve handles PATCH /api/v1/moderation/courses/:id/approve
func (h *CourseHandler) Approve(c *fiber.Ctx) error {
	actor, _ := middleware.GetUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	course, err := h.courses.Approve(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course published", course)
}

// Reject handles PATCH /api/v1/moderation/courses/:id/reject
func (h *CourseHandler) Reject(c *fiber.Ctx) error {
	actor, _ := middleware.GetUser(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	course, err := h.courses.Reject(c.UserContext(), actor, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course returned to creating", course)
}

// SetBlocked returns the handler for PATCH /api/v1/moderation/courses/:id/block and /unblock
func (h *CourseHandler) SetBlocked(blocked bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, _ := middleware.GetUser(c)
		id, ok := paramID(c, "id")
		if !ok {
			return response.BadRequest(c, "Invalid course ID")
		}
		course, err := h.courses.SetBlocked(c.UserContext(), actor, id, blocked)
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, course)
	}
}
