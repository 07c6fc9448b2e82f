package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	authutil "github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func (h *AuthHandler) setAccessCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearAccessCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// issueSession signs a token pair for user and sets the access cookie
func (h *AuthHandler) issueSession(c *fiber.Ctx, user *model.User) (*LoginResponse, error) {
	access, err := h.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwtManager.GenerateRefreshToken(user.ID, user.Email, user.Role, user.TokenVersion)
	if err != nil {
		return nil, err
	}
	h.setAccessCookie(c, access.Token, access.ExpiresAt)

	return &LoginResponse{
		User:         newUserResponse(user),
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(h.jwtManager.AccessExpiry().Seconds()),
	}, nil
}

// Login handles user login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}

	// Find user by email
	var user model.User
	if err := h.db.WithContext(c.UserContext()).Where("email = ?", req.Email).First(&user).Error; err != nil {
		// Record failed attempt even if user not found
		h.bruteForceProtection.RecordFailedAttempt(c)
		return response.Unauthorized(c, "Invalid email or password")
	}

	if err := authutil.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.bruteForceProtection.RecordFailedAttempt(c)
		return response.Unauthorized(c, "Invalid email or password")
	}

	if user.IsBlocked {
		return response.Forbidden(c, "Your account has been blocked")
	}

	h.bruteForceProtection.RecordSuccessfulAttempt(c)

	session, err := h.issueSession(c, &user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.Success(c, session)
}
