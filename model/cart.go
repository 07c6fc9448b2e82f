package model

import "time"

// CartItem is a course a user intends to buy. Unique per (user, course).
type CartItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_course;index" json:"course_id"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// WishlistItem is a course a user saved for later. Unique per (user, course).
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_course" json:"user_id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_wishlist_user_course;index" json:"course_id"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
