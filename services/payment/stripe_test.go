package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseEventPaymentSucceeded(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_1", "object": "payment_intent", "amount": 145000, "currency": "inr", "metadata": {"userId": "42"}}}
	}`)

	ev, err := g.ParseEvent(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	require.NotNil(t, ev.Payment)
	assert.Equal(t, uint(42), ev.Payment.UserID)
	assert.Equal(t, int64(145000), ev.Payment.Amount)
	assert.Equal(t, "inr", ev.Payment.Currency)
	assert.Equal(t, "pi_1", ev.Payment.PaymentIntentID)
}

func TestParseEventOtherType(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`)

	ev, err := g.ParseEvent(payload, sign(payload, testSecret))
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", ev.Type)
	assert.Nil(t, ev.Payment)
}

func TestParseEventRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := []byte(`{"id":"evt_3","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`)

	_, err := g.ParseEvent(payload, sign(payload, "whsec_other"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseEvent(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	tampered := append([]byte(nil), payload...)
	tampered[10] = 'X'
	_, err = g.ParseEvent(tampered, sign(payload, testSecret))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseEventMalformedButSigned(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := []byte(`{not json`)

	_, err := g.ParseEvent(payload, sign(payload, testSecret))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedEvent)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}
