package catalog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// ListBanners handles GET /api/v1/banners
func (h *CatalogHandler) ListBanners(c *fiber.Ctx) error {
	banners, err := h.banners.Enabled(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, banners)
}

// ListAllBanners handles GET /api/v1/admin/banners
func (h *CatalogHandler) ListAllBanners(c *fiber.Ctx) error {
	banners, err := h.banners.All(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, banners)
}

func bannerImage(c *fiber.Ctx) (*services.FileUpload, func(), error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, func() {}, nil
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &services.FileUpload{Filename: header.Filename, Body: f}, func() { f.Close() }, nil
}

// CreateBanner handles POST /api/v1/admin/banners (multipart: image, link)
func (h *CatalogHandler) CreateBanner(c *fiber.Ctx) error {
	image, done, err := bannerImage(c)
	if err != nil {
		return response.BadRequest(c, "Invalid image upload")
	}
	defer done()

	banner, err := h.banners.Create(c.UserContext(), c.FormValue("link"), image)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, banner)
}

// UpdateBanner handles PATCH /api/v1/admin/banners/:id
func (h *CatalogHandler) UpdateBanner(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid banner ID")
	}
	image, done, err := bannerImage(c)
	if err != nil {
		return response.BadRequest(c, "Invalid image upload")
	}
	defer done()

	var link *string
	if form, err := c.MultipartForm(); err == nil {
		if values, ok := form.Value["link"]; ok && len(values) > 0 {
			link = &values[0]
		}
	}

	banner, err := h.banners.Update(c.UserContext(), id, link, image)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, banner)
}

// SetBannerEnabled returns the handler for PATCH /api/v1/admin/banners/:id/enable and /disable
func (h *CatalogHandler) SetBannerEnabled(enabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return response.BadRequest(c, "Invalid banner ID")
		}
		banner, err := h.banners.SetEnabled(c.UserContext(), id, enabled)
		if err != nil {
			return response.FromError(c, err)
		}
		return response.Success(c, banner)
	}
}

// DeleteBanner handles DELETE /api/v1/admin/banners/:id
func (h *CatalogHandler) DeleteBanner(c *fiber.Ctx) error {
	id, ok := paramID(c)
	if !ok {
		return response.BadRequest(c, "Invalid banner ID")
	}
	if err := h.banners.Delete(c.UserContext(), id); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Banner deleted successfully", fiber.Map{"id": id})
}
