package commerce

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// Checkout handles POST /api/v1/checkout
func (h *CommerceHandler) Checkout(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	session, err := h.checkout.CreateSession(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, session)
}

// Webhook handles POST /stripe-webhook.
// The raw body is verified against the signature before anything is parsed.
func (h *CommerceHandler) Webhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	result, err := h.checkout.HandleWebhook(c.UserContext(), payload, c.Get(StripeSignatureHeader))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, result)
}
