package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db       *gorm.DB
	svc      *CheckoutService
	gateway  *fakeGateway
	mailer   *recordingMailer
	locker   *cache.LocalLocker
	tutor    *model.User
	buyer    *model.User
	category *model.Category
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	db := newTestDB(t)
	f := &checkoutFixture{
		db:      db,
		gateway: newFakeGateway(),
		mailer:  &recordingMailer{},
		locker:  cache.NewLocalLocker(),
	}
	email := NewEmailService(f.mailer, "https://learn.test", logger.Nop())
	f.svc = NewCheckoutService(db, f.gateway, f.locker, email, CheckoutConfig{Currency: "inr", ClientURL: "https://learn.test"}, logger.Nop())
	f.tutor = createUser(t, db, "Tutor", model.RoleUser)
	f.buyer = createUser(t, db, "Buyer", model.RoleUser)
	f.category = createCategory(t, db, "Programming")
	return f
}

func (f *checkoutFixture) course(t *testing.T, title string, price, discount int64) *model.Course {
	return createCourse(t, f.db, f.tutor.ID, f.category.ID, title, price, discount, model.CourseStatusPublished)
}

func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func succeededEvent(eventID string, userID uint, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_%s", "object": "payment_intent", "amount": %d, "currency": "inr", "metadata": {"userId": "%d"}}}
	}`, eventID, eventID, amount, userID))
}

func (f *checkoutFixture) deliver(t *testing.T, payload []byte) (*WebhookResult, error) {
	return f.svc.HandleWebhook(context.Background(), payload, signPayload(payload, testWebhookSecret))
}

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

func TestCreateSessionLineItems(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 50)
	b := f.course(t, "Go Advanced", 1000, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)
	addToCart(t, f.db, f.buyer.ID, b.ID)

	session, err := f.svc.CreateSession(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(145000), session.AmountTotal)

	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, f.buyer.ID, req.UserID)
	assert.Equal(t, "inr", req.Currency)
	assert.Equal(t, "https://learn.test/payment-success", req.SuccessURL)
	assert.Equal(t, "https://learn.test/payment-failure", req.CancelURL)
	require.Len(t, req.Items, 2)
	amounts := map[uint]int64{}
	for _, it := range req.Items {
		amounts[it.CourseID] = it.UnitAmount
	}
	assert.Equal(t, map[uint]int64{a.ID: 45000, b.ID: 100000}, amounts)

	// no local mutation
	assert.Equal(t, int64(2), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &model.Enrollment{}, "user_id = ?", f.buyer.ID))
}

func TestCreateSessionRefusals(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		f := newCheckoutFixture(t)
		_, err := f.svc.CreateSession(context.Background(), f.buyer.ID)
		requireKind(t, err, KindValidation)
		assert.Empty(t, f.gateway.requests)
	})

	t.Run("own course", func(t *testing.T) {
		f := newCheckoutFixture(t)
		c := f.course(t, "Mine", 500, 0)
		addToCart(t, f.db, f.tutor.ID, c.ID)
		_, err := f.svc.CreateSession(context.Background(), f.tutor.ID)
		requireKind(t, err, KindInvalidAction)
		assert.Empty(t, f.gateway.requests)
	})

	t.Run("already enrolled", func(t *testing.T) {
		f := newCheckoutFixture(t)
		c := f.course(t, "Owned", 500, 0)
		enroll(t, f.db, f.buyer.ID, c)
		addToCart(t, f.db, f.buyer.ID, c.ID)
		_, err := f.svc.CreateSession(context.Background(), f.buyer.ID)
		requireKind(t, err, KindInvalidAction)
	})

	t.Run("blocked course", func(t *testing.T) {
		f := newCheckoutFixture(t)
		c := f.course(t, "Blocked", 500, 0)
		require.NoError(t, f.db.Model(c).Update("is_blocked", true).Error)
		addToCart(t, f.db, f.buyer.ID, c.ID)
		_, err := f.svc.CreateSession(context.Background(), f.buyer.ID)
		requireKind(t, err, KindInvalidAction)
	})

	t.Run("checkout in progress", func(t *testing.T) {
		f := newCheckoutFixture(t)
		c := f.course(t, "Locked", 500, 0)
		addToCart(t, f.db, f.buyer.ID, c.ID)
		release, err := f.locker.Lock(context.Background(), fmt.Sprintf("checkout:%d", f.buyer.ID), time.Minute)
		require.NoError(t, err)
		defer release()

		// a request context carries no deadline of its own
		f.svc.cfg.LockWait = 50 * time.Millisecond
		_, err = f.svc.CreateSession(context.Background(), f.buyer.ID)
		requireKind(t, err, KindConflict)
		assert.Empty(t, f.gateway.requests)
	})

	t.Run("gateway failure", func(t *testing.T) {
		f := newCheckoutFixture(t)
		c := f.course(t, "Down", 500, 0)
		addToCart(t, f.db, f.buyer.ID, c.ID)
		f.gateway.fail = errors.New("stripe unavailable")
		_, err := f.svc.CreateSession(context.Background(), f.buyer.ID)
		requireKind(t, err, KindInternal)
	})
}

func TestWebhookEnrollsCart(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 50)
	b := f.course(t, "Go Advanced", 1000, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)
	addToCart(t, f.db, f.buyer.ID, b.ID)
	require.NoError(t, f.db.Create(&model.WishlistItem{UserID: f.buyer.ID, CourseID: a.ID}).Error)

	res, err := f.deliver(t, succeededEvent("evt_1", f.buyer.ID, 145000))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, res.Enrolled)

	var enrollments []model.Enrollment
	require.NoError(t, f.db.Where("user_id = ?", f.buyer.ID).Order("course_id").Find(&enrollments).Error)
	require.Len(t, enrollments, 2)
	assert.Equal(t, int64(450), enrollments[0].Price)
	assert.Equal(t, int64(1000), enrollments[1].Price)

	assert.Equal(t, int64(2), countRows(t, f.db, &model.Progress{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &model.WishlistItem{}, "user_id = ?", f.buyer.ID))

	var ledger model.ProcessedPaymentEvent
	require.NoError(t, f.db.Where("event_id = ?", "evt_1").First(&ledger).Error)
	assert.Equal(t, int64(145000), ledger.AmountEnrolled)
	assert.Equal(t, 2, ledger.EnrolledCount)
	assert.False(t, ledger.CartMismatch)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, f.buyer.Email, f.mailer.sent[0].To)
}

func TestWebhookReplayIsNoop(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)

	payload := succeededEvent("evt_dup", f.buyer.ID, 50000)
	_, err := f.deliver(t, payload)
	require.NoError(t, err)

	// the buyer fills the cart again before the provider redelivers
	b := f.course(t, "Go Advanced", 1000, 0)
	addToCart(t, f.db, f.buyer.ID, b.ID)

	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 0, res.Enrolled)
	assert.Equal(t, int64(1), countRows(t, f.db, &model.Enrollment{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(1), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
	assert.Len(t, f.mailer.sent, 1)
}

func TestWebhookEmptyCartCreatesNothing(t *testing.T) {
	f := newCheckoutFixture(t)

	res, err := f.deliver(t, succeededEvent("evt_empty", f.buyer.ID, 50000))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enrolled)
	assert.Equal(t, int64(0), countRows(t, f.db, &model.Enrollment{}, "user_id = ?", f.buyer.ID))

	var ledger model.ProcessedPaymentEvent
	require.NoError(t, f.db.Where("event_id = ?", "evt_empty").First(&ledger).Error)
	assert.True(t, ledger.CartMismatch)
	assert.Empty(t, f.mailer.sent)
}

func TestWebhookFlagsCartMismatch(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 0)
	b := f.course(t, "Go Advanced", 1000, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)
	// paid for a only, then b was added before confirmation
	addToCart(t, f.db, f.buyer.ID, b.ID)

	res, err := f.deliver(t, succeededEvent("evt_mm", f.buyer.ID, 50000))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enrolled)

	var ledger model.ProcessedPaymentEvent
	require.NoError(t, f.db.Where("event_id = ?", "evt_mm").First(&ledger).Error)
	assert.True(t, ledger.CartMismatch)
	assert.Equal(t, int64(50000), ledger.AmountPaid)
	assert.Equal(t, int64(150000), ledger.AmountEnrolled)
}

func TestWebhookSkipsExistingEnrollment(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 0)
	enroll(t, f.db, f.buyer.ID, a)
	addToCart(t, f.db, f.buyer.ID, a.ID)

	res, err := f.deliver(t, succeededEvent("evt_owned", f.buyer.ID, 50000))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Enrolled)
	assert.Equal(t, int64(1), countRows(t, f.db, &model.Enrollment{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)

	payload := succeededEvent("evt_forged", f.buyer.ID, 50000)
	_, err := f.svc.HandleWebhook(context.Background(), payload, signPayload(payload, "whsec_attacker"))
	requireKind(t, err, KindUnauthorized)

	assert.Equal(t, int64(0), countRows(t, f.db, &model.Enrollment{}, "user_id = ?", f.buyer.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &model.ProcessedPaymentEvent{}, "event_id = ?", "evt_forged"))
	assert.Equal(t, int64(1), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newCheckoutFixture(t)
	a := f.course(t, "Go Basics", 500, 0)
	addToCart(t, f.db, f.buyer.ID, a.ID)

	payload := []byte(`{"id":"evt_other","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)
	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", res.EventType)
	assert.Equal(t, 0, res.Enrolled)
	assert.Equal(t, int64(0), countRows(t, f.db, &model.ProcessedPaymentEvent{}, "event_id = ?", "evt_other"))
	assert.Equal(t, int64(1), countRows(t, f.db, &model.CartItem{}, "user_id = ?", f.buyer.ID))
}
