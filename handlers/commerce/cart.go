package commerce

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// CommerceHandler serves the cart, the wishlist and checkout
type CommerceHandler struct {
	cart     *services.CartService
	checkout *services.CheckoutService
}

// NewCommerceHandler creates a new commerce handler
func NewCommerceHandler(cart *services.CartService, checkout *services.CheckoutService) *CommerceHandler {
	return &CommerceHandler{cart: cart, checkout: checkout}
}

// CourseRequest names the course a cart or wishlist operation targets
type CourseRequest struct {
	CourseID uint `json:"course_id"`
}

func courseParam(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("courseId"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GetCart handles GET /api/v1/cart
func (h *CommerceHandler) GetCart(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	cart, err := h.cart.Cart(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, cart)
}

// AddToCart handles POST /api/v1/cart
func (h *CommerceHandler) AddToCart(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	var req CourseRequest
	if err := c.BodyParser(&req); err != nil || req.CourseID == 0 {
		return response.BadRequest(c, "course_id is required")
	}

	cart, err := h.cart.AddToCart(c.UserContext(), userID, req.CourseID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course added to cart", cart)
}

// RemoveFromCart handles DELETE /api/v1/cart/:courseId
func (h *CommerceHandler) RemoveFromCart(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	courseID, ok := courseParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	cart, err := h.cart.RemoveFromCart(c.UserContext(), userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course removed from cart", cart)
}

// GetWishlist handles GET /api/v1/wishlist
func (h *CommerceHandler) GetWishlist(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	items, err := h.cart.Wishlist(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, items)
}

// AddToWishlist handles POST /api/v1/wishlist
func (h *CommerceHandler) AddToWishlist(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	var req CourseRequest
	if err := c.BodyParser(&req); err != nil || req.CourseID == 0 {
		return response.BadRequest(c, "course_id is required")
	}

	if err := h.cart.AddToWishlist(c.UserContext(), userID, req.CourseID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course added to wishlist", fiber.Map{"course_id": req.CourseID})
}

// RemoveFromWishlist handles DELETE /api/v1/wishlist/:courseId
func (h *CommerceHandler) RemoveFromWishlist(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	courseID, ok := courseParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.cart.RemoveFromWishlist(c.UserContext(), userID, courseID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course removed from wishlist", fiber.Map{"course_id": courseID})
}

// MoveToCart handles POST /api/v1/wishlist/:courseId/move-to-cart
func (h *CommerceHandler) MoveToCart(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	courseID, ok := courseParam(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	cart, err := h.cart.MoveToCart(c.UserContext(), userID, courseID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Course moved to cart", cart)
}
