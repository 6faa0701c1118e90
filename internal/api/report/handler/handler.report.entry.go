package reporthdl

import (
	"github.com/gofiber/fiber/v3"

	basehdl "optometry_report/internal/api/base/handler"
	reportdto "optometry_report/internal/api/report/dto"
	reportsvc "optometry_report/internal/api/report/service"
	"optometry_report/internal/logger"
)

// HandleFind lists reports. District, institution (any spelling), month and
// year are optional filters.
// GET /api/v1/reports/find
func (h *ReportHandler) HandleFind(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var q reportdto.ReportFindQuery
		if err := basehdl.ParseRequestQuery(c, &q); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		list, err := h.ReportService.FindReports(c.Context(), q.District, q.Institution, q.Month, q.Year)
		basehdl.HandleResponse(c, list, err)
		return nil
	})
}

// HandleFindByID returns one report.
// GET /api/v1/reports/find-by-id/:id
func (h *ReportHandler) HandleFindByID(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var p reportdto.ReportIDParam
		if err := basehdl.ParseRequestParams(c, &p); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		r, err := h.ReportService.FindReportByID(c.Context(), p.ID)
		basehdl.HandleResponse(c, r, err)
		return nil
	})
}

// HandleInsertOne stores the first report for an institution and month.
// POST /api/v1/reports/insert-one
func (h *ReportHandler) HandleInsertOne(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var in reportdto.ReportCreateInput
		if err := basehdl.ParseRequestBody(c, &in); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		r, err := h.ReportService.InsertReport(c.Context(), reportsvc.NewReport{
			District:     in.District,
			Institution:  in.Institution,
			Month:        in.Month,
			Year:         in.Year,
			Answers:      in.Answers,
			EyeBank:      in.EyeBank,
			VisionCenter: in.VisionCenter,
		})
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		logger.LogReportWrite("insert", r.ID.Hex(), c, map[string]interface{}{
			"district":    r.District,
			"institution": r.Institution,
			"month":       r.Month,
			"year":        string(r.Year),
		})
		basehdl.HandleCreated(c, r)
		return nil
	})
}

// HandleUpdateByID replaces the content of an unlocked report.
// PUT /api/v1/reports/update-by-id/:id
func (h *ReportHandler) HandleUpdateByID(c fiber.Ctx) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var p reportdto.ReportIDParam
		if err := basehdl.ParseRequestParams(c, &p); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		var in reportdto.ReportUpdateInput
		if err := basehdl.ParseRequestBody(c, &in); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		r, err := h.ReportService.UpdateReport(c.Context(), p.ID, reportsvc.ReportContent{
			Answers:      in.Answers,
			EyeBank:      in.EyeBank,
			VisionCenter: in.VisionCenter,
		})
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		logger.LogReportWrite("update", p.ID, c, nil)
		basehdl.HandleResponse(c, r, nil)
		return nil
	})
}

// HandleLock closes the edit gate.
// POST /api/v1/reports/lock/:id
func (h *ReportHandler) HandleLock(c fiber.Ctx) error {
	return h.setLocked(c, true)
}

// HandleUnlock opens the edit gate.
// POST /api/v1/reports/unlock/:id
func (h *ReportHandler) HandleUnlock(c fiber.Ctx) error {
	return h.setLocked(c, false)
}

func (h *ReportHandler) setLocked(c fiber.Ctx, locked bool) error {
	return basehdl.SafeHandlerWrapper(c, func() error {
		var p reportdto.ReportIDParam
		if err := basehdl.ParseRequestParams(c, &p); err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		r, err := h.ReportService.SetLocked(c.Context(), p.ID, locked)
		if err != nil {
			basehdl.HandleResponse(c, nil, err)
			return nil
		}
		op := "unlock"
		if locked {
			op = "lock"
		}
		logger.LogReportWrite(op, p.ID, c, nil)
		basehdl.HandleResponse(c, r, nil)
		return nil
	})
}
