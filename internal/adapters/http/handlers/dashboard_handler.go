package handlers

import (
	"kcc-loanhub/internal/core/services"
	"kcc-loanhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard and audit endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
	auditService     *services.AuditService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, auditService *services.AuditService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		auditService:     auditService,
	}
}

// GetSummary returns dashboard data
// @Summary Dashboard summary
// @Description Loan counts by status, amount totals and credential figures
// @Tags Dashboard
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard/summary [get]
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetSummary(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get dashboard summary")
	}

	return response.Success(c, "Dashboard summary retrieved successfully", data)
}

// RunAudit sweeps the ledger invariants now
// @Summary Run ledger audit
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /audit/run [post]
func (h *DashboardHandler) RunAudit(c *fiber.Ctx) error {
	report, err := h.auditService.RunOnce(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to run ledger audit")
	}

	return response.Success(c, "Ledger audit completed", report)
}

// LastAudit returns the latest audit report
// @Summary Latest ledger audit
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /audit/last [get]
func (h *DashboardHandler) LastAudit(c *fiber.Ctx) error {
	report := h.auditService.LastReport()
	if report == nil {
		return response.NotFound(c, "No audit has run yet")
	}

	return response.Success(c, "Ledger audit retrieved", report)
}
