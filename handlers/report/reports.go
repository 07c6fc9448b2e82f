package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

// ReportHandler serves dashboard stats and generated reports.
// A platform handler reads the admin-wide figures, otherwise the caller's own courses.
type ReportHandler struct {
	reports  *services.ReportService
	platform bool
}

// NewTutorReportHandler scopes every request to the authenticated tutor
func NewTutorReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// NewPlatformReportHandler serves the platform-wide reports
func NewPlatformReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports, platform: true}
}

func (h *ReportHandler) scope(c *fiber.Ctx) uint {
	if h.platform {
		return 0
	}
	userID, _ := middleware.GetUserID(c)
	return userID
}

// Stats handles GET .../stats
func (h *ReportHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.reports.Stats(c.UserContext(), h.scope(c), time.Now())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, stats)
}

// ListReports handles GET .../reports?type=weekly|monthly|yearly
func (h *ReportHandler) ListReports(c *fiber.Ctx) error {
	typ := model.ReportType(c.Query("type", string(model.ReportMonthly)))
	if !typ.IsValid() {
		return response.BadRequest(c, "type must be weekly, monthly or yearly")
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	reports, total, err := h.reports.ListReports(c.UserContext(), h.scope(c), typ, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, reports, response.CalculatePagination(page, limit, total))
}

func reportID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// GetReport handles GET .../reports/:id
func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	id, ok := reportID(c)
	if !ok {
		return response.BadRequest(c, "Invalid report ID")
	}
	report, err := h.reports.GetReport(c.UserContext(), h.scope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, report)
}

// ExportReport handles GET .../reports/:id/export and streams the CSV as an attachment
func (h *ReportHandler) ExportReport(c *fiber.Ctx) error {
	id, ok := reportID(c)
	if !ok {
		return response.BadRequest(c, "Invalid report ID")
	}
	filename, data, err := h.reports.ExportCSV(c.UserContext(), h.scope(c), id)
	if err != nil {
		return response.FromError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(data)
}
