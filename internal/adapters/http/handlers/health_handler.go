package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the ledger store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store         Pinger
	mode          string
	vkFingerprint string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store Pinger, mode, vkFingerprint string) *HealthHandler {
	return &HealthHandler{
		store:         store,
		mode:          mode,
		vkFingerprint: vkFingerprint,
	}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 KCC LoanHub API v1.0 is running",
		"mode":    h.mode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and ledger store health
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	status := fiber.StatusOK
	storeStatus := "healthy"
	if err := h.store.Ping(c.Context()); err != nil {
		storeStatus = "unhealthy"
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == fiber.StatusOK],
		"checks": fiber.Map{
			"api":   "healthy",
			"store": storeStatus,
		},
		"verifying_key": h.vkFingerprint,
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "KCC LoanHub API v1.0",
		"version": "1.0.0",
	})
}
