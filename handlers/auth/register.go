package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	authutil "github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	signupOTPTTL         = 3 * time.Minute
	maxSignupOTPAttempts = 5
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	email                *services.EmailService
	validator            *validation.Validator
	cookieSecure         bool
	log                  *logger.Logger
}

// Config bundles what the auth handler needs beyond the database
type Config struct {
	JWTManager   *authutil.JWTManager
	Blacklist    *authutil.BlacklistService
	BruteForce   *middleware.BruteForceProtection
	Email        *services.EmailService
	Validator    *validation.Validator
	CookieSecure bool
	Log          *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, cfg Config) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           cfg.JWTManager,
		blacklistService:     cfg.Blacklist,
		bruteForceProtection: cfg.BruteForce,
		email:                cfg.Email,
		validator:            cfg.Validator,
		cookieSecure:         cfg.CookieSecure,
		log:                  cfg.Log.With("handler", "auth"),
	}
}

// SignupStartRequest begins registration by emailing a one-time code
type SignupStartRequest struct {
	Name     string `json:"name" validate:"required,trimmed_min=2,trimmed_max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// SignupFinishRequest confirms the emailed code
type SignupFinishRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Image     string    `json:"image"`
	Bio       string    `json:"bio"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(user *model.User) UserResponse {
	interests := []string(user.Interests)
	if interests == nil {
		interests = []string{}
	}
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Image:     user.Image,
		Bio:       user.Bio,
		Interests: interests,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupStart stores a pending registration and emails its verification code
func (h *AuthHandler) SignupStart(c *fiber.Ctx) error {
	var req SignupStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}
	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		return response.BadRequest(c, strings.Join(problems, "; "))
	}

	db := h.db.WithContext(c.UserContext())
	var existing int64
	if err := db.Unscoped().Model(&model.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to check email")
	}
	if existing > 0 {
		return response.Conflict(c, "User with this email already exists")
	}

	code, err := authutil.GenerateOTP()
	if err != nil {
		return response.InternalServerError(c, "Failed to generate code")
	}
	codeHash, err := authutil.HashSecret(code)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate code")
	}
	passwordHash, err := authutil.HashPassword(req.Password)
	if err != nil {
		return response.InternalServerError(c, "Failed to process password")
	}

	pending := model.SignupOTP{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
		CodeHash:     codeHash,
		Attempts:     0,
		ExpiresAt:    time.Now().Add(signupOTPTTL),
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash", "code_hash", "attempts", "expires_at", "updated_at"}),
	}).Create(&pending).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to start signup")
	}

	if err := h.email.SendSignupOTP(c.UserContext(), req.Email, req.Name, code); err != nil {
		h.log.Error("failed to send signup code", "error", err)
		return response.ServiceUnavailable(c, "Failed to send verification email")
	}

	return response.SuccessWithMessage(c, "Verification code sent", fiber.Map{
		"email":      req.Email,
		"expires_in": int(signupOTPTTL.Seconds()),
	})
}

var errOTPRejected = errors.New("otp rejected")

// SignupFinish verifies the code, creates the account and signs the user in
func (h *AuthHandler) SignupFinish(c *fiber.Ctx) error {
	var req SignupFinishRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = normalizeEmail(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.BadRequest(c, validation.Message(err))
	}

	var user model.User
	rejection := ""
	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var pending model.SignupOTP
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("email = ?", req.Email).First(&pending).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				rejection = "No pending signup for this email"
				return errOTPRejected
			}
			return err
		}

		if time.Now().After(pending.ExpiresAt) || pending.Attempts >= maxSignupOTPAttempts {
			rejection = "Verification code has expired, please sign up again"
			if err := tx.Delete(&pending).Error; err != nil {
				return err
			}
			// the delete must survive, so commit and report afterwards
			return nil
		}

		if authutil.VerifyPassword(pending.CodeHash, req.OTP) != nil {
			rejection = "Invalid verification code"
			return tx.Model(&pending).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
		}

		user = model.User{
			Email:        pending.Email,
			Name:         pending.Name,
			PasswordHash: pending.PasswordHash,
			Role:         model.RoleUser,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				rejection = "User with this email already exists"
				return errOTPRejected
			}
			return err
		}
		return tx.Delete(&pending).Error
	})
	if rejection != "" {
		if rejection == "User with this email already exists" {
			return response.Conflict(c, rejection)
		}
		return response.BadRequest(c, rejection)
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to complete signup")
	}

	session, err := h.issueSession(c, &user)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}
	return response.Created(c, session)
}
