package model

import (
	"time"

	"gorm.io/datatypes"
)

// ReportType is the period a report covers
type ReportType string

const (
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportYearly  ReportType = "yearly"
)

func (t ReportType) IsValid() bool {
	return t == ReportWeekly || t == ReportMonthly || t == ReportYearly
}

// Report is a generated sales summary. TutorID 0 is the platform-wide admin report.
type Report struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Type        ReportType     `gorm:"type:varchar(10);not null;uniqueIndex:idx_report_period" json:"type"`
	TutorID     uint           `gorm:"not null;default:0;uniqueIndex:idx_report_period" json:"tutor_id"`
	PeriodStart time.Time      `gorm:"not null;uniqueIndex:idx_report_period" json:"period_start"`
	PeriodEnd   time.Time      `gorm:"not null" json:"period_end"`
	Revenue     int64          `json:"revenue"`
	Enrollments int64          `json:"enrollments"`
	NewCourses  int64          `json:"new_courses"`
	Payload     datatypes.JSON `json:"payload"` // top courses for the period
}
