package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// ChapterRequest is the body for creating a chapter
type ChapterRequest struct {
	Title string `json:"title"`
}

// ListChapters handles GET /api/v1/courses/:id/chapters
func (h *CourseHandler) ListChapters(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	chapters, err := h.content.ListChapters(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, chapters)
}

// CreateChapter handles POST /api/v1/courses/:id/chapters
func (h *CourseHandler) CreateChapter(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	var req ChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	chapter, err := h.content.CreateChapter(c.UserContext(), userID, id, req.Title)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, chapter)
}

// UpdateChapter handles PATCH /api/v1/chapters/:id
func (h *CourseHandler) UpdateChapter(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid chapter ID")
	}
	var req services.ChapterUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	chapter, err := h.content.UpdateChapter(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, chapter)
}

// DeleteChapter handles DELETE /api/v1/chapters/:id
func (h *CourseHandler) DeleteChapter(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid chapter ID")
	}
	if err := h.content.DeleteChapter(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Chapter deleted successfully", fiber.Map{"id": id})
}

// CreateVideo handles POST /api/v1/chapters/:id/videos (multipart, video file required)
func (h *CourseHandler) CreateVideo(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid chapter ID")
	}
	var req services.VideoInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	upload, file, err := formFile(c, "video")
	if err != nil {
		return response.BadRequest(c, "Invalid video upload")
	}
	if file != nil {
		defer file.Close()
	}

	video, err := h.content.CreateVideo(c.UserContext(), userID, id, req, upload)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, video)
}

// UpdateVideo handles PATCH /api/v1/videos/:id (multipart, video file optional)
func (h *CourseHandler) UpdateVideo(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid video ID")
	}
	var req services.VideoUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	upload, file, err := formFile(c, "video")
	if err != nil {
		return response.BadRequest(c, "Invalid video upload")
	}
	if file != nil {
		defer file.Close()
	}

	video, err := h.content.UpdateVideo(c.UserContext(), userID, id, req, upload)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, video)
}

// DeleteVideo handles DELETE /api/v1/videos/:id
func (h *CourseHandler) DeleteVideo(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid video ID")
	}
	if err := h.content.DeleteVideo(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Video deleted successfully", fiber.Map{"id": id})
}

// CreateExercise handles POST /api/v1/chapters/:id/exercises
func (h *CourseHandler) CreateExercise(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid chapter ID")
	}
	var req services.ExerciseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	exercise, err := h.content.CreateExercise(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, exercise)
}

// UpdateExercise handles PATCH /api/v1/exercises/:id
func (h *CourseHandler) UpdateExercise(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid exercise ID")
	}
	var req services.ExerciseUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	exercise, err := h.content.UpdateExercise(c.UserContext(), userID, id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, exercise)
}

// DeleteExercise handles DELETE /api/v1/exercises/:id
func (h *CourseHandler) DeleteExercise(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := paramID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid exercise ID")
	}
	if err := h.content.DeleteExercise(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Exercise deleted successfully", fiber.Map{"id": id})
}
