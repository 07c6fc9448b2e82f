package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/payment"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var dbSeq int64

// newTestDB opens a private in-memory sqlite database with every table migrated
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbSeq, 1))
	store, err := database.OpenSQLite(dsn, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.DB()
}

func createUser(t *testing.T, db *gorm.DB, name, role string) *model.User {
	t.Helper()
	u := &model.User{
		Email:        strings.ToLower(name) + "@example.com",
		PasswordHash: "x",
		Name:         name,
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createCategory(t *testing.T, db *gorm.DB, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createCourse(t *testing.T, db *gorm.DB, tutorID, categoryID uint, title string, price, discount int64, status model.CourseStatus) *model.Course {
	t.Helper()
	c := &model.Course{
		TutorID:     tutorID,
		CategoryID:  categoryID,
		Title:       title,
		Description: "A course used in tests, long enough.",
		Price:       price,
		Discount:    discount,
		Language:    "English",
		Status:      status,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func enroll(t *testing.T, db *gorm.DB, userID uint, course *model.Course) {
	t.Helper()
	require.NoError(t, db.Create(&model.Enrollment{UserID: userID, CourseID: course.ID, Price: course.SalePrice()}).Error)
	require.NoError(t, db.Create(&model.Progress{UserID: userID, CourseID: course.ID}).Error)
}

func addToCart(t *testing.T, db *gorm.DB, userID, courseID uint) {
	t.Helper()
	require.NoError(t, db.Create(&model.CartItem{UserID: userID, CourseID: courseID}).Error)
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}

// chapterOrders returns chapter titles keyed by sort order
func chapterOrders(t *testing.T, db *gorm.DB, courseID uint) map[int]string {
	t.Helper()
	var chapters []model.Chapter
	require.NoError(t, db.Where("course_id = ?", courseID).Find(&chapters).Error)
	out := make(map[int]string, len(chapters))
	for _, c := range chapters {
		out[c.SortOrder] = c.Title
	}
	return out
}

func videoFile(name string) *FileUpload {
	return &FileUpload{Filename: name, Body: bytes.NewReader([]byte("not really a video"))}
}

// fakeGateway records checkout requests and verifies webhooks with the real Stripe code
type fakeGateway struct {
	*payment.StripeGateway
	requests []payment.SessionRequest
	fail     error
}

const testWebhookSecret = "whsec_test_secret"

func newFakeGateway() *fakeGateway {
	return &fakeGateway{StripeGateway: payment.NewStripeGateway("sk_test", testWebhookSecret)}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	g.requests = append(g.requests, req)
	var total int64
	for _, it := range req.Items {
		total += it.UnitAmount
	}
	id := fmt.Sprintf("cs_test_%d", len(g.requests))
	return &payment.Session{ID: id, URL: "https://checkout.test/" + id, AmountTotal: total}, nil
}

// recordingMailer keeps every message instead of sending it
type recordingMailer struct {
	sent []MailMessage
}

func (m *recordingMailer) Send(_ context.Context, msg MailMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}
