package model

import (
	"time"

	"gorm.io/datatypes"
)

// AdminAuditLog is the audit trail of moderation actions
type AdminAuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	ActorID    uint           `gorm:"not null;index" json:"actor_id"`
	Action     string         `gorm:"type:varchar(100);not null" json:"action"` // e.g. course_approve, user_block
	Resource   string         `gorm:"type:varchar(50)" json:"resource"`         // e.g. courses, users
	ResourceID uint           `json:"resource_id"`
	Body       datatypes.JSON `json:"body"`
	Status     int            `json:"status"`
	IPAddress  string         `gorm:"type:varchar(45)" json:"ip_address"`
	UserAgent  string         `gorm:"type:text" json:"user_agent"`

	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}
