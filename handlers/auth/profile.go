package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
)

// UpdateProfileRequest represents a profile update request. Nil fields are unchanged.
type UpdateProfileRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,trimmed_min=2,trimmed_max=100"`
	Bio       *string  `json:"bio,omitempty" validate:"omitempty,max=1000"`
	Image     *string  `json:"image,omitempty" validate:"omitempty,url"`
	Interests []string `json:"interests,omitempty" validate:"omitempty,max=20,dive,trimmed_min=1,trimmed_max=50"`
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	return response.Success(c, newUserResponse(user))
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
		updates["name"] = user.Name
	}
	if req.Bio != nil {
		user.Bio = validation.SanitizeString(*req.Bio)
		updates["bio"] = user.Bio
	}
	if req.Image != nil {
		user.Image = strings.TrimSpace(*req.Image)
		updates["image"] = user.Image
	}
	if req.Interests != nil {
		for i := range req.Interests {
			req.Interests[i] = strings.TrimSpace(req.Interests[i])
		}
		user.Interests = req.Interests
		updates["interests"] = user.Interests
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(c.UserContext()).Model(user).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update profile")
		}
	}
	return response.Success(c, newUserResponse(user))
}
