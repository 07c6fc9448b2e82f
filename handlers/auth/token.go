package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	authutil "github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse represents a token refresh response
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RefreshToken exchanges a refresh token for a new pair; the old refresh token is revoked
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	isRevoked, err := h.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	// Load user to get current token version
	var user model.User
	if err := h.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}
	if user.IsBlocked {
		return response.Forbidden(c, "Your account has been blocked")
	}

	access, _, err := h.jwtManager.RefreshAccessToken(req.RefreshToken, user.TokenVersion)
	if err != nil {
		return response.Unauthorized(c, "Token has been invalidated")
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate refresh token")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, claims.ExpiresAt.Time, "token_refresh"); err != nil {
		// the old token still expires on its own
		h.log.Warn("failed to revoke rotated refresh token", "user_id", user.ID, "error", err)
	}

	h.setAccessCookie(c, access.Token, access.ExpiresAt)
	return response.Success(c, RefreshResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(h.jwtManager.AccessExpiry().Seconds()),
	})
}

// Logout revokes the access token in use and clears the cookie
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}
	claims, ok := middleware.GetClaims(c)
	if !ok {
		return response.BadRequest(c, "No token ID found")
	}

	if err := h.blacklistService.RevokeToken(c.UserContext(), claims.ID, user.ID, claims.ExpiresAt.Time, "sign_out"); err != nil {
		return response.InternalServerError(c, "Failed to logout")
	}

	// a refresh token sent along is revoked too
	var req RefreshRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		if rc, err := h.jwtManager.ValidateToken(req.RefreshToken); err == nil && rc.UserID == user.ID && rc.TokenType == authutil.TokenTypeRefresh {
			_ = h.blacklistService.RevokeToken(c.UserContext(), rc.ID, user.ID, rc.ExpiresAt.Time, "sign_out")
		}
	}

	h.clearAccessCookie(c)
	return response.SuccessWithMessage(c, "Successfully logged out", nil)
}
