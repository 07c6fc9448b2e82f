package model

import "time"

// Enrollment grants a user permanent access to a purchased course.
// Rows are only created by payment confirmation and never updated.
type Enrollment struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course" json:"user_id"`
	CourseID       uint      `gorm:"not null;uniqueIndex:idx_enrollment_user_course;index" json:"course_id"`
	Price          int64     `gorm:"not null" json:"price"`
	PaymentEventID string    `gorm:"type:varchar(255);index" json:"-"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

// Progress records which items of a course a learner has consumed.
type Progress struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_progress_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_progress_user_course;index" json:"course_id"`

	Items []ProgressItem `gorm:"foreignKey:ProgressID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// Progress item kinds
const (
	ProgressItemVideo    = "video"
	ProgressItemExercise = "exercise"
)

// ProgressItem is one consumed video or exercise. Membership is append-only.
type ProgressItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ProgressID uint      `gorm:"not null;uniqueIndex:idx_progress_item" json:"progress_id"`
	ItemType   string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_progress_item" json:"item_type"`
	ItemID     uint      `gorm:"not null;uniqueIndex:idx_progress_item" json:"item_id"`
}
