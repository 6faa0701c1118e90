package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v3"

	"optometry_report/internal/common"
	"optometry_report/internal/logger"
)

// AccessKeyHeader carries the shared key on write requests.
const AccessKeyHeader = "X-Access-Key"

// AccessKeyMiddleware gates a route behind the shared access key. An empty key
// leaves the route open.
func AccessKeyMiddleware(key string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}
		got := c.Get(AccessKeyHeader)
		if got == "" {
			return HandleErrorResponse(c, common.ErrAccessKeyMissing)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			logger.WithRequest(c).Warn("Rejected request with invalid access key")
			return HandleErrorResponse(c, common.ErrAccessKeyInvalid)
		}
		return c.Next()
	}
}
