// Package reporthdl holds the HTTP handlers of the Report domain.
package reporthdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "optometry_report/internal/api/base/handler"
	reportdto "optometry_report/internal/api/report/dto"
	reportsvc "optometry_report/internal/api/report/service"
	"optometry_report/internal/fiscal"
)

// ReportHandler serves the cumulative engine and report entry.
type ReportHandler struct {
	ReportService *reportsvc.ReportService
}

// NewReportHandler wraps svc.
func NewReportHandler(svc *reportsvc.ReportService) *ReportHandler {
	return &ReportHandler{ReportService: svc}
}

// HandleCumulative returns one institution's fiscal-year-to-date total.
// GET /api/v1/reports/cumulative?district=&institution=&month=&year=
func (h *ReportHandler) HandleCumulative(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.CumulativeQuery
		if err := basehdl.ParseRequestQuery(c, &q); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		res, err := h.ReportService.CumulativeFor(c.Context(), q.District, q.Institution, q.Month, q.Year)
		if err == nil {
			err = checkPeriod(c, q.Month, q.Year, res.Period)
		}
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, reportdto.NewCumulativeResponse(res), nil)
		return nil
	})
}

// HandleDistrictMatrix returns per-institution month and cumulative vectors of
// a district with their totals.
// GET /api/v1/reports/district-matrix?district=&month=&year=
func (h *ReportHandler) HandleDistrictMatrix(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.DistrictMatrixQuery
		if err := basehdl.ParseRequestQuery(c, &q); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		m, err := h.ReportService.DistrictMatrix(c.Context(), q.District, q.Month, q.Year)
		if err == nil {
			err = checkPeriod(c, q.Month, q.Year, m.Period)
		}
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, reportdto.NewDistrictMatrixResponse(m), nil)
		return nil
	})
}

// HandleFiscalWindow lists the periods summed for a cumulative through the
// given month.
// GET /api/v1/reports/fiscal-window?month=&year=
func (h *ReportHandler) HandleFiscalWindow(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.FiscalWindowQuery
		if err := basehdl.ParseRequestQuery(c, &q); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		p, err := fiscal.ParsePeriod(q.Month, q.Year)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		w, err := fiscal.Window(p)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, reportdto.NewFiscalWindowResponse(p, w), nil)
		return nil
	})
}

// HandleCanonical resolves an institution name against the alias table.
// GET /api/v1/institutions/canonical?name=
func (h *ReportHandler) HandleCanonical(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.CanonicalQuery
		if err := basehdl.ParseRequestQuery(c, &q); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		basehdl.HandleResponse(c, reportdto.NewCanonicalResponse(h.ReportService.Resolver().Canonicalizer(), q.Name), nil)
		return nil
	})
}
