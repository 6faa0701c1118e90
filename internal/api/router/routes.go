// Package router holds the shared route registration helpers and mounts every
// domain under /api/v1.
package router

import (
	"github.com/gofiber/fiber/v3"

	basehdl "optometry_report/internal/api/base/handler"
)

// RoutePrefix holds the base API prefixes.
type RoutePrefix struct {
	Base string // /api
	V1   string // /api/v1
}

// NewRoutePrefix returns the default prefixes.
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// Router gives domain routers access to the app.
type Router struct {
	app *fiber.App
}

// NewRouter wraps app.
func NewRouter(app *fiber.App) *Router {
	return &Router{app: app}
}

// App returns the underlying fiber app.
func (r *Router) App() *fiber.App { return r.app }

// RegisterRouteWithMiddleware registers handler at prefix+path behind
// middlewares. Fiber v3 takes the handler first and runs the trailing
// handlers before it, so middlewares stay scoped to this one route instead of
// the whole prefix group.
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	routeGroup.Add([]string{method}, path, handler, middlewares...)
}

// RegisterFunc registers the routes of one domain.
type RegisterFunc func(v1 fiber.Router, r *Router) error

// SetupRoutes mounts every domain under /api/v1. Domains are passed in by the
// caller to avoid import cycles.
func SetupRoutes(app *fiber.App, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	r := NewRouter(app)
	for _, reg := range regs {
		if err := reg(v1, r); err != nil {
			return err
		}
	}
	return nil
}

// SystemRoutes registers /system/health.
func SystemRoutes(h *basehdl.SystemHandler) RegisterFunc {
	return func(v1 fiber.Router, r *Router) error {
		RegisterRouteWithMiddleware(v1, "/system", "GET", "/health", nil, h.HandleHealth)
		return nil
	}
}
