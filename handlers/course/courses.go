package course

import (
	"context"
	"mime/multipart"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
)

// CourseHandler handles course-related requests
type CourseHandler struct {
	courses   *services.CourseService
	content   *services.ContentService
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(courses *services.CourseService, content *services.ContentService, validator *validation.Validator) *CourseHandler {
	return &CourseHandler{
		courses:   courses,
		content:   content,
		validator: validator,
	}
}

// UpdatePriceRequest represents the request body for changing a course price
type UpdatePriceRequest struct {
	Price    int64 `json:"price" validate:"min=0"`
	Discount int64 `json:"discount" validate:"min=0"`
}

func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// formFile returns the named multipart file, nil when absent.
// The caller closes the returned file.
func formFile(c *fiber.Ctx, field string) (*services.FileUpload, multipart.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, err
	}
	return &services.FileUpload{Filename: header.Filename, Body: f}, f, nil
}

// Home handles GET /api/v1/courses/home
func (h *CourseHandler) Home(c *fiber.Ctx) error {
	viewerID, _ := middleware.GetUserID(c)
	sections, err := h.courses.Home(c.UserContext(), viewerID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, sections)
}

// Browse handles GET /api/v1/courses
func (h *CourseHandler) Browse(c *fiber.Ctx) error {
	viewerID, _ := middleware.GetUserID(c)

	categoryID, _ := strconv.ParseUint(c.Query("category"), 10, 32)
	minPrice, _ := strconv.ParseInt(c.Query("min_price", "0"), 10, 64)
	maxPrice, _ := strconv.ParseInt(c.Query("max_price", "99999"), 10, 64)
	page, _ := strconv.Atoi(c.Query("page", "1"))

	result, err := h.courses.Browse(c.UserContext(), viewerID, services.BrowseFilter{
		Search:     c.Query("search"),
		CategoryID: uint(categoryID),
		Language:   c.Query("language"),
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       c.Query("sort"),
		Page:       page,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	viewer, _ := middleware.GetUser(c)

	course, err := h.courses.GetCourse(c.UserContext(), viewer, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// TutorCourses handles GET /api/v1/tutor/courses?status=creating|pending|published
func (h *CourseHandler) TutorCourses(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	status := model.CourseStatus(c.Query("status", string(model.CourseStatusCreating)))
	switch status {
	case model.CourseStatusCreating, model.CourseStatusPending, model.CourseStatusPublished:
	default:
		return response.BadRequest(c, "Status must be creating, pending or published")
	}

	courses, err := h.courses.TutorCourses(c.UserContext(), userID, status)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, courses)
}

// CreateCourse handles POST /api/v1/courses (multipart, thumbnail file required)
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)

	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	thumbnail, file, err := formFile(c, "thumbnail")
	if err != nil {
		return response.BadRequest(c, "Invalid thumbnail upload")
	}
	if file != nil {
		defer file.Close()
	}

	course, err := h.courses.CreateCourse(c.UserContext(), userID, req, thumbnail)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id (multipart, thumbnail optional)
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	thumbnail, file, err := formFile(c, "thumbnail")
	if err != nil {
		return response.BadRequest(c, "Invalid thumbnail upload")
	}
	if file != nil {
		defer file.Close()
	}

	course, err := h.courses.UpdateCourse(c.UserContext(), userID, id, req, thumbnail)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// UpdatePrice handles PATCH /api/v1/courses/:id/price
func (h *CourseHandler) UpdatePrice(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdatePriceRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}

	course, err := h.courses.UpdatePrice(c.UserContext(), userID, id, req.Price, req.Discount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.courses.DeleteCourse(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course deleted successfully", fiber.Map{"id": id})
}

// SubmitForReview handles POST /api/v1/courses/:id/submit
func (h *CourseHandler) SubmitForReview(c *fiber.Ctx) error {
	return h.tutorTransition(c, h.courses.SubmitForReview)
}

// CancelReview handles POST /api/v1/courses/:id/cancel-review
func (h *CourseHandler) CancelReview(c *fiber.Ctx) error {
	return h.tutorTransition(c, h.courses.CancelReview)
}

func (h *CourseHandler) tutorTransition(c *fiber.Ctx, fn func(ctx context.Context, tutorID, courseID uint) (*model.Course, error)) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	course, err := fn(c.UserContext(), userID, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, course)
}
