package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/payment"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	checkoutLockTTL  = 30 * time.Second
	checkoutLockWait = 2 * time.Second
)

// CheckoutConfig holds what checkout needs from the environment
type CheckoutConfig struct {
	Currency  string
	ClientURL string
	// LockWait bounds how long a second checkout by the same user waits
	// before it is refused. Zero means checkoutLockWait.
	LockWait time.Duration
}

// CheckoutService starts payments and applies confirmed ones
type CheckoutService struct {
	db      *gorm.DB
	gateway payment.Gateway
	locker  cache.Locker
	email   *EmailService
	cfg     CheckoutConfig
	log     *logger.Logger
}

// NewCheckoutService creates a new checkout service. email may be nil.
func NewCheckoutService(db *gorm.DB, gateway payment.Gateway, locker cache.Locker, email *EmailService, cfg CheckoutConfig, log *logger.Logger) *CheckoutService {
	return &CheckoutService{
		db:      db,
		gateway: gateway,
		locker:  locker,
		email:   email,
		cfg:     cfg,
		log:     log.With("service", "CheckoutService"),
	}
}

// CreateSession opens a provider checkout session for everything in the user's cart.
// It does not change local state.
func (s *CheckoutService) CreateSession(ctx context.Context, userID uint) (*payment.Session, error) {
	wait := s.cfg.LockWait
	if wait <= 0 {
		wait = checkoutLockWait
	}
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	release, err := s.locker.Lock(lockCtx, fmt.Sprintf("checkout:%d", userID), checkoutLockTTL)
	cancel()
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, Conflict("A checkout is already in progress")
		}
		return nil, Internal("Failed to acquire checkout lock", err)
	}
	defer release()

	db := s.db.WithContext(ctx)
	items, err := loadCart(db, userID)
	if err != nil {
		return nil, Internal("Failed to load cart", err)
	}
	if len(items) == 0 {
		return nil, Validation("Cart is empty")
	}

	lines := make([]payment.LineItem, 0, len(items))
	for _, item := range items {
		course := item.Course
		if course == nil || !course.IsPurchasable() || course.TutorID == userID {
			return nil, InvalidAction("Invalid action")
		}
		owned, err := isEnrolled(db, userID, course.ID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, InvalidAction("Invalid action")
		}
		lines = append(lines, payment.LineItem{
			CourseID:   course.ID,
			Name:       course.Title,
			ImageURL:   course.ThumbnailURL,
			UnitAmount: course.SalePrice() * 100,
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.SessionRequest{
		UserID:     userID,
		Currency:   s.cfg.Currency,
		Items:      lines,
		SuccessURL: s.cfg.ClientURL + "/payment-success",
		CancelURL:  s.cfg.ClientURL + "/payment-failure",
	})
	if err != nil {
		return nil, Internal("Failed to create checkout session", err)
	}

	s.log.Info("checkout session created", "user_id", userID, "session_id", session.ID, "items", len(lines))
	return session, nil
}

// WebhookResult describes what a delivered event did
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	// Duplicate is true when the event was applied by an earlier delivery
	Duplicate bool `json:"duplicate"`
	Enrolled  int  `json:"enrolled"`
}

// HandleWebhook verifies and applies a provider event. Only payment_intent.succeeded
// mutates state: the user's current cart becomes enrollments and progress records, and
// the cart and wishlist are cleared. Each event id is applied at most once.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	ev, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.log.Warn("rejected webhook with invalid signature")
			return nil, Unauthorized("Invalid signature")
		}
		s.log.Warn("rejected malformed webhook payload", "error", err)
		return nil, Validation("Malformed event payload")
	}

	result := &WebhookResult{EventID: ev.ID, EventType: ev.Type}
	if ev.Type != payment.EventPaymentSucceeded || ev.Payment == nil {
		s.log.Debug("ignoring webhook event", "event_id", ev.ID, "type", ev.Type)
		return result, nil
	}

	paid := ev.Payment
	var receipt []ReceiptLine
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := model.ProcessedPaymentEvent{
			EventID:    ev.ID,
			EventType:  ev.Type,
			UserID:     paid.UserID,
			Currency:   paid.Currency,
			AmountPaid: paid.Amount,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ledger)
		if res.Error != nil {
			return Internal("Failed to record payment event", res.Error)
		}
		if res.RowsAffected == 0 {
			result.Duplicate = true
			return nil
		}
		if paid.UserID == 0 {
			s.log.Warn("payment event without user metadata", "event_id", ev.ID)
			return nil
		}

		items, err := loadCart(tx, paid.UserID)
		if err != nil {
			return Internal("Failed to load cart", err)
		}

		var enrolledAmount int64
		for _, item := range items {
			if item.Course == nil {
				continue
			}
			enrollment := model.Enrollment{
				UserID:         paid.UserID,
				CourseID:       item.CourseID,
				Price:          item.Course.SalePrice(),
				PaymentEventID: ev.ID,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enrollment)
			if res.Error != nil {
				return Internal("Failed to create enrollment", res.Error)
			}
			progress := model.Progress{UserID: paid.UserID, CourseID: item.CourseID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
				return Internal("Failed to create progress", err)
			}
			if res.RowsAffected == 0 {
				continue
			}
			result.Enrolled++
			enrolledAmount += enrollment.Price * 100
			receipt = append(receipt, ReceiptLine{Title: item.Course.Title, Price: enrollment.Price})
		}

		if err := tx.Where("user_id = ?", paid.UserID).Delete(&model.CartItem{}).Error; err != nil {
			return Internal("Failed to clear cart", err)
		}
		if err := tx.Where("user_id = ?", paid.UserID).Delete(&model.WishlistItem{}).Error; err != nil {
			return Internal("Failed to clear wishlist", err)
		}

		mismatch := enrolledAmount != paid.Amount
		if mismatch {
			s.log.Warn("paid amount differs from enrolled cart",
				"event_id", ev.ID, "user_id", paid.UserID, "paid", paid.Amount, "enrolled", enrolledAmount)
		}
		return tx.Model(&model.ProcessedPaymentEvent{}).Where("event_id = ?", ev.ID).Updates(map[string]interface{}{
			"amount_enrolled": enrolledAmount,
			"enrolled_count":  result.Enrolled,
			"cart_mismatch":   mismatch,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		s.log.Info("payment event already processed", "event_id", ev.ID)
		return result, nil
	}
	s.log.Info("payment applied", "event_id", ev.ID, "user_id", paid.UserID, "enrolled", result.Enrolled)
	if len(receipt) > 0 {
		s.sendReceipt(ctx, paid.UserID, paid.Currency, receipt)
	}
	return result, nil
}

func (s *CheckoutService) sendReceipt(ctx context.Context, userID uint, currency string, lines []ReceiptLine) {
	if s.email == nil {
		return
	}
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		s.log.Warn("receipt skipped, user not loaded", "user_id", userID, "error", err)
		return
	}
	if err := s.email.SendPurchaseReceipt(ctx, user.Email, user.Name, currency, lines); err != nil {
		s.log.Warn("failed to send purchase receipt", "user_id", userID, "error", err)
	}
}
