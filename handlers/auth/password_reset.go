package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	authutil "github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a password reset with token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

const forgotPasswordReply = "If the email exists, a password reset link will be sent"

// ForgotPassword emails a reset link. The reply never reveals whether the email exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}

	db := h.db.WithContext(c.UserContext())
	var user model.User
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return response.SuccessWithMessage(c, forgotPasswordReply, nil)
	}

	token, err := authutil.GenerateResetToken()
	if err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}
	reset := model.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := db.Create(&reset).Error; err != nil {
		return response.InternalServerError(c, "Failed to create reset token")
	}

	if err := h.email.SendPasswordReset(c.UserContext(), user.Email, user.Name, token); err != nil {
		h.log.Error("failed to send password reset email", "user_id", user.ID, "error", err)
	}
	return response.SuccessWithMessage(c, forgotPasswordReply, nil)
}

var errResetRejected = errors.New("reset rejected")

// ResetPassword sets a new password from an emailed token and signs out every session
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Token = strings.TrimSpace(req.Token)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, strings.Join(problems, "; "))
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var reset model.PasswordResetToken
		if err := tx.Where("token = ?", req.Token).First(&reset).Error; err != nil {
			return errResetRejected
		}
		if !reset.IsUsable(time.Now()) {
			return errResetRejected
		}
		now := time.Now()
		res := tx.Model(&model.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", reset.ID).
			UpdateColumn("used_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errResetRejected
		}
		return tx.Model(&model.User{}).Where("id = ?", reset.UserID).Updates(map[string]interface{}{
			"password_hash": hashedPassword,
			"token_version": gorm.Expr("token_version + 1"),
		}).Error
	})
	if errors.Is(err, errResetRejected) {
		return response.BadRequest(c, "Invalid or expired reset token")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	return response.SuccessWithMessage(c, "Password reset successfully", nil)
}

// ChangePassword handles password change for authenticated users
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, strings.Join(problems, "; "))
	}

	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.OldPassword); err != nil {
		return response.BadRequest(c, "Current password is incorrect")
	}

	hashedPassword, err := authutil.HashPassword(req.NewPassword)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	// bumping the version invalidates every token issued so far
	if err := h.db.WithContext(c.UserContext()).Model(user).Updates(map[string]interface{}{
		"password_hash": hashedPassword,
		"token_version": user.TokenVersion + 1,
	}).Error; err != nil {
		return response.InternalServerError(c, "Failed to update password")
	}

	h.clearAccessCookie(c)
	return response.SuccessWithMessage(c, "Password changed successfully. Please login again with your new password", nil)
}
