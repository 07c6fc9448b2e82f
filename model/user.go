package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User roles. Any user may author courses; a course's author is its tutor.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
)

// User represents a registered account
type User struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`
	Email        string                      `gorm:"uniqueIndex;not null;type:varchar(254)" json:"email"`
	PasswordHash string                      `gorm:"not null" json:"-"`
	Name         string                      `gorm:"not null;type:varchar(100)" json:"name"`
	Role         string                      `gorm:"type:varchar(20);default:'user'" json:"role"`
	Image        string                      `gorm:"type:text" json:"image"`
	Bio          string                      `gorm:"type:text" json:"bio"`
	Interests    datatypes.JSONSlice[string] `json:"interests"`
	IsBlocked    bool                        `gorm:"default:false;index" json:"is_blocked"`
	TokenVersion int                         `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens
}

// IsStaff reports whether the user can moderate courses.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}
