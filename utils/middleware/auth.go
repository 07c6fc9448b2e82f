package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"gorm.io/gorm"
)

// AccessTokenCookie is the http-only cookie set at sign-in.
const AccessTokenCookie = "access_token"

var (
	errMissingToken = errors.New("Missing authorization token")
	errBadFormat    = errors.New("Invalid authorization format")
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager       *auth.JWTManager
	blacklistService *auth.BlacklistService
	db               *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, blacklist *auth.BlacklistService, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:       jwtManager,
		blacklistService: blacklist,
		db:               db,
	}
}

// authFailure carries the status the caller should answer with.
type authFailure struct {
	status  int
	message string
}

// tokenFromRequest reads a Bearer header first, then the access_token cookie.
func tokenFromRequest(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errBadFormat
		}
		return parts[1], nil
	}
	if cookie := c.Cookies(AccessTokenCookie); cookie != "" {
		return cookie, nil
	}
	return "", errMissingToken
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) *authFailure {
	tokenString, err := tokenFromRequest(c)
	if err != nil {
		return &authFailure{fiber.StatusUnauthorized, err.Error()}
	}

	claims, err := m.jwtManager.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return &authFailure{fiber.StatusUnauthorized, "Token has expired"}
		}
		return &authFailure{fiber.StatusUnauthorized, "Invalid token"}
	}

	if claims.TokenType != auth.TokenTypeAccess {
		return &authFailure{fiber.StatusUnauthorized, "Invalid token type"}
	}

	isRevoked, err := m.blacklistService.IsTokenRevoked(c.UserContext(), claims.ID)
	if err != nil {
		return &authFailure{fiber.StatusInternalServerError, "Failed to check token status"}
	}
	if isRevoked {
		return &authFailure{fiber.StatusUnauthorized, "Token has been revoked"}
	}

	var user model.User
	if err := m.db.WithContext(c.UserContext()).First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &authFailure{fiber.StatusUnauthorized, "User not found"}
		}
		return &authFailure{fiber.StatusInternalServerError, "Failed to load user"}
	}

	if user.TokenVersion != claims.TokenVersion {
		return &authFailure{fiber.StatusUnauthorized, "Token has been invalidated"}
	}
	if user.IsBlocked {
		return &authFailure{fiber.StatusForbidden, "Your account has been blocked"}
	}

	// role comes from the row, so a demoted moderator loses access immediately
	c.Locals("user_id", user.ID)
	c.Locals("user_email", user.Email)
	c.Locals("user_role", user.Role)
	c.Locals("claims", claims)
	c.Locals("user", &user)
	c.Locals("token_jti", claims.ID)

	return nil
}

// Required is middleware that requires a valid JWT token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if failure := m.authenticate(c); failure != nil {
			switch failure.status {
			case fiber.StatusForbidden:
				return response.Forbidden(c, failure.message)
			case fiber.StatusInternalServerError:
				return response.InternalServerError(c, failure.message)
			default:
				return response.Unauthorized(c, failure.message)
			}
		}
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if failure := m.authenticate(c); failure != nil {
			for _, key := range []string{"user_id", "user_email", "user_role", "claims", "user", "token_jti"} {
				c.Locals(key, nil)
			}
		}
		return c.Next()
	}
}

// RequireRole is middleware that requires specific user role. Mount after Required.
func (m *AuthMiddleware) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := GetUserRole(c)
		if !ok {
			return response.Forbidden(c, "Access denied")
		}

		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return response.Forbidden(c, "Insufficient permissions")
	}
}

// RequireStaff admits moderators and admins
func (m *AuthMiddleware) RequireStaff() fiber.Handler {
	return m.RequireRole(model.RoleModerator, model.RoleAdmin)
}

// RequireAdmin admits admins only
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return m.RequireRole(model.RoleAdmin)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok && id != 0
}

// GetUserRole extracts user role from context
func GetUserRole(c *fiber.Ctx) (string, bool) {
	r, ok := c.Locals("user_role").(string)
	return r, ok
}

// GetUser extracts full user object from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	u, ok := c.Locals("user").(*model.User)
	return u, ok && u != nil
}

// GetClaims extracts full claims from context
func GetClaims(c *fiber.Ctx) (*auth.Claims, bool) {
	claims, ok := c.Locals("claims").(*auth.Claims)
	return claims, ok && claims != nil
}
