package model

import "time"

// Category groups courses for browsing
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;not null;type:varchar(60)" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
}
