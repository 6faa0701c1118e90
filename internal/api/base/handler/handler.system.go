package basehdl

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"optometry_report/internal/common"
)

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

// SystemHandler serves system routes.
type SystemHandler struct {
	mongo Pinger
	redis Pinger // nil when the Redis tiers are disabled
}

// NewSystemHandler builds a SystemHandler. A nil mongo pinger reports the
// database as not initialized.
func NewSystemHandler(mongo, redis Pinger) *SystemHandler {
	return &SystemHandler{mongo: mongo, redis: redis}
}

// HandleHealth reports API, MongoDB and Redis status.
// MongoDB down answers 503. Redis down only degrades: reads still fall back.
// GET /api/v1/system/health
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	services := fiber.Map{"api": "ok"}
	healthData := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}

	switch {
	case h.mongo == nil:
		healthData["status"] = "degraded"
		services["database"] = "not_initialized"
	default:
		if err := h.mongo(ctx); err != nil {
			healthData["status"] = "degraded"
			services["database"] = "error"
			healthData["database_error"] = err.Error()
			return JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
				"code":    common.StatusServiceUnavailable,
				"message": common.MsgServiceUnavailable,
				"data":    healthData,
				"status":  "error",
			})
		}
		services["database"] = "ok"
	}

	switch {
	case h.redis == nil:
		services["cache"] = "disabled"
	default:
		if err := h.redis(ctx); err != nil {
			healthData["status"] = "degraded"
			services["cache"] = "error"
			healthData["cache_error"] = err.Error()
		} else {
			services["cache"] = "ok"
		}
	}

	return JSONResponse(c, common.StatusOK, fiber.Map{
		"code":    common.StatusOK,
		"message": common.MsgSuccess,
		"data":    healthData,
		"status":  "success",
	})
}
