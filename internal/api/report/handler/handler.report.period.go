package reporthdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/logger"
)

// ErrPeriodMismatch is returned when a computed result is for a different
// period than the one requested.
var ErrPeriodMismatch = common.NewError(common.ErrCodeInternalServer, "Result period does not match the requested period", common.StatusInternalServerError, nil)

// checkPeriod fails when got is not the requested month and year.
func checkPeriod(c fiber.Ctx, month, year string, got fiscal.Period) error {
	want, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return err
	}
	if want == got {
		return nil
	}
	logger.WithRequest(c).WithFields(map[string]interface{}{
		"requested": want.String(),
		"computed":  got.String(),
	}).Error("Result period mismatch")
	return common.WithDetails(ErrPeriodMismatch, fmt.Sprintf("requested %s, computed %s", want, got))
}
