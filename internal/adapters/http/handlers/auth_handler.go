package handlers

import (
	"errors"
	"strings"
	"time"

	"kcc-loanhub/internal/adapters/persistence/models"
	"kcc-loanhub/internal/core/domain"
	"kcc-loanhub/internal/core/services"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles wallet sign-in endpoints
type AuthHandler struct {
	authService  *services.AuthService
	engine       *services.Engine
	tokenMinutes int
	secure       bool
}

// NewAuthHandler creates a new auth handler. secure marks cookies Secure.
func NewAuthHandler(authService *services.AuthService, engine *services.Engine, tokenMinutes int, secure bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		engine:       engine,
		tokenMinutes: tokenMinutes,
		secure:       secure,
	}
}

// Challenge issues a sign-in challenge
// @Summary Request sign-in challenge
// @Description Returns a one-time message the wallet must sign with personal_sign
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.ChallengeInput true "Wallet address"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/challenge [post]
func (h *AuthHandler) Challenge(c *fiber.Ctx) error {
	var req services.ChallengeInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	addr, err := domain.ParseAddress(req.Address)
	if err != nil {
		return badRequest(c, "Invalid address")
	}

	ch := h.authService.Challenge(c.Context(), addr)
	return response.Success(c, "Challenge issued", ch)
}

// Login handles wallet login
// @Summary Login with signed challenge
// @Description Verify the challenge signature and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body services.LoginInput true "Address and signature"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req services.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	addr, err := domain.ParseAddress(req.Address)
	if err != nil {
		return badRequest(c, "Invalid address")
	}
	if strings.TrimSpace(req.Signature) == "" {
		return badRequest(c, "Signature is required")
	}

	result, err := h.authService.Login(c.Context(), addr, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChallengeNotFound):
			return response.Unauthorized(c, "No pending challenge, request a new one")
		case errors.Is(err, services.ErrChallengeExpired):
			return response.Unauthorized(c, "Challenge expired, request a new one")
		case errors.Is(err, services.ErrInvalidSignature):
			return response.Unauthorized(c, "Invalid signature")
		default:
			return response.InternalServerError(c, "Login failed")
		}
	}

	h.setAuthCookie(c, result.AccessToken)

	return response.Success(c, "Login successful", result)
}

// Logout clears the auth cookie
// @Summary Logout
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearAuthCookie(c)
	return response.Success(c, "Logout successful", nil)
}

// MeResponse describes the authenticated caller
type MeResponse struct {
	Address    string                     `json:"address"`
	Roles      []domain.Role              `json:"roles"`
	Credential *models.CredentialResponse `json:"credential"`
}

// Me returns the caller's roles and credential status
// @Summary Current identity
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return withCaller(c, func(who common.Address) error {
		roles, err := h.engine.GetRoles(c.Context())
		if err != nil {
			return respondError(c, err)
		}

		me := MeResponse{
			Address: who.Hex(),
			Roles:   roles.RolesOf(who),
		}
		if me.Roles == nil {
			me.Roles = []domain.Role{}
		}

		cred, err := h.engine.GetCredential(c.Context(), who)
		switch {
		case err == nil:
			me.Credential = models.NewCredentialResponse(cred)
		case !errors.Is(err, domain.ErrNotFound):
			return respondError(c, err)
		}

		return response.Success(c, "Identity retrieved", me)
	})
}

// setAuthCookie sets the access token cookie
func (h *AuthHandler) setAuthCookie(c *fiber.Ctx, accessToken string) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   h.tokenMinutes * 60,
		Secure:   h.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// clearAuthCookie clears the access token cookie
func (h *AuthHandler) clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Now().Add(-1 * time.Hour),
		Secure:   h.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
