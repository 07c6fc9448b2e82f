package commerce

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/services/payment"
	"github.com/sahilchouksey/course-marketplace/utils/cache"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_handler_test"

func newCommerceApp(t *testing.T, locker cache.Locker, userID uint) (*fiber.App, *gorm.DB) {
	t.Helper()
	store, err := database.OpenSQLite(fmt.Sprintf("file:commerce_%s?mode=memory&cache=shared", t.Name()), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	db := store.DB()

	checkout := services.NewCheckoutService(db, payment.NewStripeGateway("sk_test", webhookSecret), locker, nil,
		services.CheckoutConfig{Currency: "inr", ClientURL: "https://learn.test"}, logger.Nop())
	h := NewCommerceHandler(services.NewCartService(db, logger.Nop()), checkout)

	app := fiber.New()
	app.Post("/stripe-webhook", h.Webhook)
	app.Post("/checkout", func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}, h.Checkout)
	return app, db
}

func newWebhookApp(t *testing.T) (*fiber.App, *gorm.DB) {
	return newCommerceApp(t, cache.NewLocalLocker(), 0)
}

func webhookRequest(payload []byte, secret string) *http.Request {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	req := httptest.NewRequest(fiber.MethodPost, "/stripe-webhook", bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(StripeSignatureHeader, fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestWebhookEndpoint(t *testing.T) {
	app, db := newWebhookApp(t)

	tutor := model.User{Email: "tutor@example.com", PasswordHash: "x", Name: "Tutor"}
	buyer := model.User{Email: "buyer@example.com", PasswordHash: "x", Name: "Buyer"}
	require.NoError(t, db.Create(&tutor).Error)
	require.NoError(t, db.Create(&buyer).Error)
	category := model.Category{Name: "Programming"}
	require.NoError(t, db.Create(&category).Error)
	course := model.Course{TutorID: tutor.ID, CategoryID: category.ID, Title: "Go Basics", Price: 500, Language: "English", Status: model.CourseStatusPublished}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&model.CartItem{UserID: buyer.ID, CourseID: course.ID}).Error)

	payload := []byte(fmt.Sprintf(`{"id":"evt_http","object":"event","type":"payment_intent.succeeded",
		"data":{"object":{"id":"pi_http","object":"payment_intent","amount":50000,"currency":"inr","metadata":{"userId":"%d"}}}}`, buyer.ID))

	t.Run("forged signature", func(t *testing.T) {
		resp, err := app.Test(webhookRequest(payload, "whsec_wrong"))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(fiber.MethodPost, "/stripe-webhook", bytes.NewReader(payload))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid delivery enrolls", func(t *testing.T) {
		resp, err := app.Test(webhookRequest(payload, webhookSecret))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, float64(1), data["enrolled"])
		assert.Equal(t, false, data["duplicate"])

		var n int64
		require.NoError(t, db.Model(&model.Enrollment{}).Where("user_id = ?", buyer.ID).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})

	t.Run("signed but malformed", func(t *testing.T) {
		resp, err := app.Test(webhookRequest([]byte(`{not json`), webhookSecret))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("redelivery is acknowledged", func(t *testing.T) {
		resp, err := app.Test(webhookRequest(payload, webhookSecret))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		data := decodeBody(t, resp)["data"].(map[string]interface{})
		assert.Equal(t, true, data["duplicate"])
	})
}

func TestCheckoutWhileAnotherIsRunning(t *testing.T) {
	locker := cache.NewLocalLocker()
	app, _ := newCommerceApp(t, locker, 1)

	release, err := locker.Lock(context.Background(), "checkout:1", time.Minute)
	require.NoError(t, err)
	defer release()

	started := time.Now()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/checkout", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Less(t, time.Since(started), 4*time.Second)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
}
