// Package reportdto holds request and response shapes of the report API.
package reportdto

import (
	reportmodels "optometry_report/internal/api/report/models"
)

// ReportCreateInput is the body of POST /reports/insert-one.
type ReportCreateInput struct {
	District     string                         `json:"district" validate:"required,max=100,no_xss"`
	Institution  string                         `json:"institution" validate:"required,max=200,no_xss"`
	Month        string                         `json:"month" validate:"required,fiscal_month"`
	Year         string                         `json:"year" validate:"required,fiscal_year"`
	Answers      map[string]interface{}         `json:"answers" validate:"omitempty,answer_keys"`
	EyeBank      []reportmodels.EyeBankRow      `json:"eyeBank" validate:"omitempty,len=2,dive"`
	VisionCenter []reportmodels.VisionCenterRow `json:"visionCenter" validate:"omitempty,max=10,dive"`
}

// ReportUpdateInput is the body of PUT /reports/update-by-id/:id.
type ReportUpdateInput struct {
	Answers      map[string]interface{}         `json:"answers" validate:"omitempty,answer_keys"`
	EyeBank      []reportmodels.EyeBankRow      `json:"eyeBank" validate:"omitempty,len=2,dive"`
	VisionCenter []reportmodels.VisionCenterRow `json:"visionCenter" validate:"omitempty,max=10,dive"`
}

// ReportFindQuery is the query of GET /reports/find. Every field is optional.
type ReportFindQuery struct {
	District    string `query:"district" json:"district" validate:"omitempty,no_xss"`
	Institution string `query:"institution" json:"institution" validate:"omitempty,no_xss"`
	Month       string `query:"month" json:"month" validate:"omitempty,fiscal_month"`
	Year        string `query:"year" json:"year" validate:"omitempty,fiscal_year"`
}

// ReportIDParam is the :id path parameter.
type ReportIDParam struct {
	ID string `uri:"id" json:"id" validate:"required,mongodb"`
}
