package model

import (
	"time"

	"gorm.io/datatypes"
)

// CourseStatus is the review state of a course
type CourseStatus string

const (
	CourseStatusCreating  CourseStatus = "creating"
	CourseStatusPending   CourseStatus = "pending"
	CourseStatusPublished CourseStatus = "published"
)

// Course is authored by a tutor and sold to learners.
// Prices are whole currency units; the amount charged is Price - Discount.
type Course struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	TutorID      uint                        `gorm:"not null;index" json:"tutor_id"`
	CategoryID   uint                        `gorm:"not null;index" json:"category_id"`
	Title        string                      `gorm:"not null;type:varchar(50)" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Price        int64                       `gorm:"not null" json:"price"`
	Discount     int64                       `gorm:"not null;default:0" json:"discount"`
	Language     string                      `gorm:"type:varchar(50)" json:"language"`
	Requirements datatypes.JSONSlice[string] `json:"requirements"`
	Benefits     datatypes.JSONSlice[string] `json:"benefits"`
	ThumbnailURL string                      `gorm:"type:text" json:"thumbnail"`
	ThumbnailKey string                      `gorm:"type:text" json:"-"`
	Status       CourseStatus                `gorm:"type:varchar(20);not null;default:'creating';index" json:"status"`
	IsBlocked    bool                        `gorm:"default:false;index" json:"is_blocked"`
	Rating       float64                     `gorm:"default:0" json:"rating"`
	ReviewCount  int                         `gorm:"default:0" json:"review_count"`

	// Relationships
	Tutor    *User     `gorm:"foreignKey:TutorID" json:"tutor,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Chapters []Chapter `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"chapters,omitempty"`
}

// SalePrice is the amount a learner pays for the course.
func (c *Course) SalePrice() int64 {
	return c.Price - c.Discount
}

// IsPurchasable reports whether the course can be carted and bought.
func (c *Course) IsPurchasable() bool {
	return c.Status == CourseStatusPublished && !c.IsBlocked
}

// Chapter is an ordered section of a course. SortOrder is dense within the course, starting at 1.
type Chapter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CourseID  uint      `gorm:"not null;index;uniqueIndex:idx_chapter_course_title" json:"course_id"`
	Title     string    `gorm:"not null;type:varchar(100);uniqueIndex:idx_chapter_course_title" json:"title"`
	SortOrder int       `gorm:"column:sort_order;not null" json:"order"`

	Videos    []Video    `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"videos,omitempty"`
	Exercises []Exercise `gorm:"foreignKey:ChapterID;constraint:OnDelete:CASCADE" json:"exercises,omitempty"`
}

// Video is an ordered lecture inside a chapter
type Video struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	ChapterID       uint      `gorm:"not null;index" json:"chapter_id"`
	Title           string    `gorm:"not null;type:varchar(100)" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	VideoURL        string    `gorm:"type:text" json:"video_url"`
	VideoKey        string    `gorm:"type:text" json:"-"`
	DurationSeconds int       `gorm:"default:0" json:"duration_seconds"`
	SortOrder       int       `gorm:"column:sort_order;not null" json:"order"`
}

// Exercise is an ordered multiple choice question inside a chapter
type Exercise struct {
	ID        uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time                   `json:"created_at"`
	UpdatedAt time.Time                   `json:"updated_at"`
	CourseID  uint                        `gorm:"not null;index" json:"course_id"`
	ChapterID uint                        `gorm:"not null;index" json:"chapter_id"`
	Question  string                      `gorm:"not null;type:text" json:"question"`
	Options   datatypes.JSONSlice[string] `json:"options"` // A, B, C, D in order
	Answer    string                      `gorm:"type:varchar(1);not null" json:"answer"`
	SortOrder int                         `gorm:"column:sort_order;not null" json:"order"`
}
