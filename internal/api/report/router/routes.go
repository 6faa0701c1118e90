// Package router registers the routes of the Report domain.
package router

import (
	"github.com/gofiber/fiber/v3"

	reporthdl "optometry_report/internal/api/report/handler"
	reportsvc "optometry_report/internal/api/report/service"
	"optometry_report/internal/api/middleware"
	apirouter "optometry_report/internal/api/router"
)

// Register mounts the cumulative engine, report entry and institution lookup
// on v1. Writes sit behind the shared access key.
func Register(svc *reportsvc.ReportService, accessKey string) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		h := reporthdl.NewReportHandler(svc)
		write := []fiber.Handler{middleware.AccessKeyMiddleware(accessKey)}

		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "GET", "/cumulative", nil, h.HandleCumulative)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "GET", "/district-matrix", nil, h.HandleDistrictMatrix)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "GET", "/fiscal-window", nil, h.HandleFiscalWindow)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "GET", "/find", nil, h.HandleFind)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "GET", "/find-by-id/:id", nil, h.HandleFindByID)

		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "POST", "/insert-one", write, h.HandleInsertOne)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "PUT", "/update-by-id/:id", write, h.HandleUpdateByID)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "POST", "/lock/:id", write, h.HandleLock)
		apirouter.RegisterRouteWithMiddleware(v1, "/reports", "POST", "/unlock/:id", write, h.HandleUnlock)

		apirouter.RegisterRouteWithMiddleware(v1, "/institutions", "GET", "/canonical", nil, h.HandleCanonical)
		return nil
	}
}
