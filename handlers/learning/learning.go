package learning

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// LearningHandler serves enrolled course content and progress
type LearningHandler struct {
	learning *services.LearningService
}

// NewLearningHandler creates a new learning handler
func NewLearningHandler(learning *services.LearningService) *LearningHandler {
	return &LearningHandler{learning: learning}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// PurchasedCourses handles GET /api/v1/learning
func (h *LearningHandler) PurchasedCourses(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	enrollments, err := h.learning.PurchasedCourses(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, enrollments)
}

// ChapterEntry handles GET /api/v1/learning/chapters/:id
func (h *LearningHandler) ChapterEntry(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid chapter ID")
	}
	item, err := h.learning.ChapterEntry(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, item)
}

// WatchVideo handles GET /api/v1/learning/videos/:id
func (h *LearningHandler) WatchVideo(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid video ID")
	}
	detail, err := h.learning.WatchVideo(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, detail)
}

// OpenExercise handles GET /api/v1/learning/exercises/:id
func (h *LearningHandler) OpenExercise(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid exercise ID")
	}
	detail, err := h.learning.OpenExercise(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, detail)
}

// Progress handles GET /api/v1/learning/courses/:id/progress
func (h *LearningHandler) Progress(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	summary, err := h.learning.Progress(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, summary)
}
