package handlers

import (
	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/services"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// CredentialHandler handles credential registry endpoints
type CredentialHandler struct {
	engine *services.Engine
}

// NewCredentialHandler creates a new credential handler
func NewCredentialHandler(engine *services.Engine) *CredentialHandler {
	return &CredentialHandler{engine: engine}
}

// IssueCredentialRequest represents issue request body
type IssueCredentialRequest struct {
	Subject string `json:"subject"`
}

// Issue grants a credential
// @Summary Issue credential
// @Description Grant a farmer an active credential (Issuer only)
// @Tags Credentials
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body IssueCredentialRequest true "Subject address"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /credentials [post]
func (h *CredentialHandler) Issue(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		var req IssueCredentialRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
		subject, err := domain.ParseAddress(req.Subject)
		if err != nil {
			return badRequest(c, "Invalid subject address")
		}

		cred, err := h.engine.IssueCredential(c.Context(), who, subject)
		if err != nil {
			return respondError(c, err)
		}
		return response.Created(c, "Credential issued", models.NewCredentialResponse(cred))
	})
}

// Revoke revokes a credential
// @Summary Revoke credential
// @Description Revoke the credential of a farmer (Issuer only)
// @Tags Credentials
// @Produce json
// @Security BearerAuth
// @Param address path string true "Subject address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /credentials/{address}/revoke [post]
func (h *CredentialHandler) Revoke(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		subject, ok := addressParam(c, "address")
		if !ok {
			return badRequest(c, "Invalid address")
		}

		cred, err := h.engine.RevokeCredential(c.Context(), who, subject)
		if err != nil {
			return respondError(c, err)
		}
		return response.Success(c, "Credential revoked", models.NewCredentialResponse(cred))
	})
}

// Get returns a credential record
// @Summary Get credential
// @Tags Credentials
// @Produce json
// @Security BearerAuth
// @Param address path string true "Subject address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /credentials/{address} [get]
func (h *CredentialHandler) Get(c *fiber.Ctx) error {
	subject, ok := addressParam(c, "address")
	if !ok {
		return badRequest(c, "Invalid address")
	}

	cred, err := h.engine.GetCredential(c.Context(), subject)
	if err != nil {
		return respondError(c, err)
	}
	return response.Success(c, "Credential retrieved", models.NewCredentialResponse(cred))
}
