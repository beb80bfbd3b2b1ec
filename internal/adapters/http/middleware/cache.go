package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CacheControl sets cache headers on successful GET responses.
// A zero maxAge marks responses as not storable.
func CacheControl(maxAge time.Duration) fiber.Handler {
	value := "no-store"
	if maxAge > 0 {
		value = "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	}

	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() == fiber.MethodGet && c.Response().StatusCode() == fiber.StatusOK {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}
