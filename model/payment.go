package model

import "time"

// ProcessedPaymentEvent is the ledger of payment provider events that were applied.
// The unique EventID makes webhook redelivery a no-op.
type ProcessedPaymentEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	EventID   string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"event_id"`
	EventType string    `gorm:"type:varchar(100);not null" json:"event_type"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Currency  string    `gorm:"type:varchar(10)" json:"currency"`
	// Amounts are in the provider's minor units
	AmountPaid     int64 `json:"amount_paid"`
	AmountEnrolled int64 `json:"amount_enrolled"`
	EnrolledCount  int   `json:"enrolled_count"`
	// CartMismatch marks events where the cart changed between checkout and confirmation
	CartMismatch bool `gorm:"default:false;index" json:"cart_mismatch"`
}

// TableName specifies the table name for ProcessedPaymentEvent
func (ProcessedPaymentEvent) TableName() string {
	return "processed_payment_events"
}
