package handlers

import (
	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/services"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// RoleHandler handles role authority endpoints
type RoleHandler struct {
	engine *services.Engine
}

// NewRoleHandler creates a new role handler
func NewRoleHandler(engine *services.Engine) *RoleHandler {
	return &RoleHandler{engine: engine}
}

// AssignRoleRequest represents assign request body
type AssignRoleRequest struct {
	Address string `json:"address"`
}

// List returns all role slots
// @Summary List roles
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /roles [get]
func (h *RoleHandler) List(c *fiber.Ctx) error {
	roles, err := h.engine.GetRoles(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Roles retrieved", models.NewRoleAssignmentResponse(roles))
}

// Get returns the holder of one role
// @Summary Get role holder
// @Tags Roles
// @Produce json
// @Security BearerAuth
// @Param role path string true "ISSUER, BANK_OFFICER or AUDITOR"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /roles/{role} [get]
func (h *RoleHandler) Get(c *fiber.Ctx) error {
	role, ok := domain.ParseRole(c.Params("role"))
	if !ok {
		return respondError(c, domain.OpError("getRole", domain.ErrNotFound, "unknown role "+c.Params("role")))
	}

	holder, err := h.engine.GetRole(c.Context(), role)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Role retrieved", fiber.Map{
		"role":    role,
		"address": holder.Hex(),
	})
}

// Assign sets the holder of a role
// @Summary Assign role
// @Description Assign BANK_OFFICER or AUDITOR (Issuer only)
// @Tags Roles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role path string true "BANK_OFFICER or AUDITOR"
// @Param body body AssignRoleRequest true "Holder address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /roles/{role} [put]
func (h *RoleHandler) Assign(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		role, ok := domain.ParseRole(c.Params("role"))
		if !ok {
			return respondError(c, domain.OpError("assign", domain.ErrNotFound, "unknown role "+c.Params("role")))
		}
		var req AssignRoleRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		identity, err := domain.ParseAddress(req.Address)
		if err != nil {
			return badRequest(c, "Invalid address")
		}

		if err := h.engine.AssignRole(c.Context(), who, role, identity); err != nil {
			return respondError(c, err)
		}
		return response.Success(c, "Role assigned", fiber.Map{
			"role":    role,
			"address": identity.Hex(),
		})
	})
}
