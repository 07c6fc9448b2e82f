package catalog

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// CatalogHandler serves categories and home page banners
type CatalogHandler struct {
	categories *services.CategoryService
	banners    *services.BannerService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(categories *services.CategoryService, banners *services.BannerService) *CatalogHandler {
	return &CatalogHandler{categories: categories, banners: banners}
}

func paramID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListCategories handles GET /api/v1/categories
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.categories.List(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, categories)
}

// CreateCategory handles POST /api/v1/admin/categories
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req services.CategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	category, err := h.categories.Create(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, category)
}

// UpdateCategory handles PUT /api/v1/admin/categories/:id
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid category ID")
	}
	var req services.CategoryInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	category, err := h.categories.Update(c.UserContext(), id, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, category)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/:id
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid category ID")
	}
	if err := h.categories.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Category deleted successfully", fiber.Map{"id": id})
}
