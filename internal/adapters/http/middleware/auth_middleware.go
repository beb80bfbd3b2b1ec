package middleware

import (
	"errors"
	"strings"

	"kcc-loanhub/internal/pkg/jwt"
	"kcc-loanhub/internal/pkg/response"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
)

const callerKey = "caller"

// TokenValidator resolves an access token to the caller address
type TokenValidator interface {
	ValidateToken(token string) (common.Address, error)
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokens TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		caller, err := tokens.ValidateToken(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// CallerFrom returns the authenticated caller set by AuthMiddleware
func CallerFrom(c *fiber.Ctx) (common.Address, bool) {
	caller, ok := c.Locals(callerKey).(common.Address)
	return caller, ok
}

// bearerToken reads the token from the access_token cookie or the Authorization header
func bearerToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
