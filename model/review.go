package model

import "time"

// Review is a learner's rating of a course, one per user per course
type Review struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_review_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_review_user_course;index" json:"course_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
