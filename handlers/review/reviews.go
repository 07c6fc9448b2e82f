package review

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// ReviewHandler handles course review requests
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListReviews handles GET /api/v1/courses/:id/reviews
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	reviews, total, err := h.reviews.CourseReviews(c.UserContext(), id, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, reviews, response.CalculatePagination(page, limit, total))
}

// AddReview handles POST /api/v1/courses/:id/reviews
func (h *ReviewHandler) AddReview(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.AddReview(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, review)
}

// UpdateReview handles PATCH /api/v1/reviews/:id
func (h *ReviewHandler) UpdateReview(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}
	var req services.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	review, err := h.reviews.UpdateReview(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, review)
}

// DeleteReview handles DELETE /api/v1/reviews/:id
func (h *ReviewHandler) DeleteReview(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid review ID")
	}
	if err := h.reviews.DeleteReview(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Review deleted successfully", fiber.Map{"id": id})
}
