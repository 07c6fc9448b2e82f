package model

import "time"

// Banner is a promotional image shown on the home page
type Banner struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ImageURL  string    `gorm:"type:text;not null" json:"image"`
	ImageKey  string    `gorm:"type:text" json:"-"`
	Link      string    `gorm:"type:text" json:"link"`
	IsEnabled bool      `gorm:"default:true;index" json:"is_enabled"`
}
