package model

import "time"

// ChatMessage is a message posted in a course room
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Message   string    `gorm:"type:text;not null" json:"message"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
