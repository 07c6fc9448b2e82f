package model

import (
	"time"
)

// PasswordResetToken stores password reset tokens
type PasswordResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	Token     string     `gorm:"uniqueIndex;not null;type:varchar(100)" json:"-"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// TableName specifies the table name for PasswordResetToken
func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// IsUsable reports whether the token is unused and not yet expired at now.
func (p *PasswordResetToken) IsUsable(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}

// SignupOTP holds a pending registration until the emailed code is confirmed.
type SignupOTP struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;not null;type:varchar(254)" json:"email"`
	Name         string    `gorm:"type:varchar(100)" json:"name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CodeHash     string    `gorm:"not null" json:"-"`
	Attempts     int       `gorm:"default:0" json:"attempts"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expires_at"`
}

// TableName specifies the table name for SignupOTP
func (SignupOTP) TableName() string {
	return "signup_otps"
}
