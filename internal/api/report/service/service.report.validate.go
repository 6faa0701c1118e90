package reportsvc

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/answer"
	"optometry_report/internal/common"
)

// normalizeContent checks submitted content and returns it in stored form:
// answers as float64 counts, both eyeBank rows present in fixed order.
func normalizeContent(c ReportContent) (ReportContent, error) {
	answers, err := normalizeAnswers(c.Answers)
	if err != nil {
		return ReportContent{}, err
	}
	eyeBank, err := normalizeEyeBank(c.EyeBank)
	if err != nil {
		return ReportContent{}, err
	}
	visionCenter, err := normalizeVisionCenter(c.VisionCenter)
	if err != nil {
		return ReportContent{}, err
	}
	return ReportContent{Answers: answers, EyeBank: eyeBank, VisionCenter: visionCenter}, nil
}

func invalidInput(format string, args ...interface{}) error {
	return common.WithDetails(common.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func normalizeAnswers(in map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))
	for k, raw := range in {
		if _, ok := answer.SlotIndex(k); !ok {
			return nil, invalidInput("answer key %q is not one of q1..q%d", k, answer.Slots)
		}
		v, ok := countValue(raw)
		if !ok {
			return nil, invalidInput("answer %s must be a non-negative number", k)
		}
		out[k] = v
	}
	return out, nil
}

// countValue accepts finite non-negative numbers, json.Number and numeric
// strings. Blank strings and nil count as zero.
func countValue(raw interface{}) (float64, bool) {
	switch x := raw.(type) {
	case nil:
		return 0, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return checkCount(f)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return checkCount(f)
	case float64, float32, int, int32, int64:
		return checkCount(answer.Coerce(x))
	}
	return 0, false
}

func checkCount(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

func checkMetrics(where string, values ...float64) error {
	for _, v := range values {
		if _, ok := checkCount(v); !ok {
			return invalidInput("%s metrics must be non-negative numbers", where)
		}
	}
	return nil
}

// normalizeEyeBank accepts zero rows (both filled with zeros) or exactly the
// two fixed categories in any order.
func normalizeEyeBank(rows []reportmodels.EyeBankRow) ([]reportmodels.EyeBankRow, error) {
	out := make([]reportmodels.EyeBankRow, len(reportmodels.EyeBankCategories))
	for i, name := range reportmodels.EyeBankCategories {
		out[i].Name = name
	}
	if len(rows) == 0 {
		return out, nil
	}
	if len(rows) != len(reportmodels.EyeBankCategories) {
		return nil, invalidInput("eyeBank must have exactly %d rows", len(reportmodels.EyeBankCategories))
	}

	filled := make([]bool, len(out))
	for _, r := range rows {
		idx := -1
		for i, name := range reportmodels.EyeBankCategories {
			if strings.EqualFold(strings.Join(strings.Fields(r.Name), " "), name) {
				idx = i
				break
			}
		}
		if idx < 0 || filled[idx] {
			return nil, invalidInput("eyeBank row %q is not an expected category", r.Name)
		}
		if err := checkMetrics("eyeBank", r.Collected, r.Keratoplasty, r.OtherUse, r.Discarded, r.Pledged); err != nil {
			return nil, err
		}
		r.Name = reportmodels.EyeBankCategories[idx]
		out[idx] = r
		filled[idx] = true
	}
	return out, nil
}

func normalizeVisionCenter(rows []reportmodels.VisionCenterRow) ([]reportmodels.VisionCenterRow, error) {
	if len(rows) > reportmodels.MaxVisionCenters {
		return nil, invalidInput("visionCenter allows at most %d rows", reportmodels.MaxVisionCenters)
	}
	out := make([]reportmodels.VisionCenterRow, 0, len(rows))
	for _, r := range rows {
		r.Name = strings.Join(strings.Fields(r.Name), " ")
		if r.Name == "" {
			return nil, invalidInput("visionCenter rows need a name")
		}
		if err := checkMetrics("visionCenter", r.Screened, r.RefractiveErrors, r.SpectaclesPrescribed, r.CataractDetected, r.Referred); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
