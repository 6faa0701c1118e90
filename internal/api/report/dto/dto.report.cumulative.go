package reportdto

import (
	reportsvc "optometry_report/internal/api/report/service"
	"optometry_report/internal/canon"
	"optometry_report/internal/fiscal"
)

// CumulativeQuery is the query of GET /reports/cumulative.
type CumulativeQuery struct {
	District    string `query:"district" json:"district" validate:"required,no_xss"`
	Institution string `query:"institution" json:"institution" validate:"required,no_xss"`
	Month       string `query:"month" json:"month" validate:"required,fiscal_month"`
	Year        string `query:"year" json:"year" validate:"required,fiscal_year"`
}

// DistrictMatrixQuery is the query of GET /reports/district-matrix.
type DistrictMatrixQuery struct {
	District string `query:"district" json:"district" validate:"required,no_xss"`
	Month    string `query:"month" json:"month" validate:"required,fiscal_month"`
	Year     string `query:"year" json:"year" validate:"required,fiscal_year"`
}

// FiscalWindowQuery is the query of GET /reports/fiscal-window.
type FiscalWindowQuery struct {
	Month string `query:"month" json:"month" validate:"required,fiscal_month"`
	Year  string `query:"year" json:"year" validate:"required,fiscal_year"`
}

// CanonicalQuery is the query of GET /institutions/canonical.
type CanonicalQuery struct {
	Name string `query:"name" json:"name" validate:"required,no_xss"`
}

// Period is a (month, year) pair as transmitted: full month name and a 4-digit
// year string.
type Period struct {
	Month string `json:"month"`
	Year  string `json:"year"`
}

// NewPeriod renders p.
func NewPeriod(p fiscal.Period) Period {
	return Period{Month: p.Month.String(), Year: p.YearString()}
}

// NewWindow renders an ordered window.
func NewWindow(w []fiscal.Period) []Period {
	out := make([]Period, 0, len(w))
	for _, p := range w {
		out = append(out, NewPeriod(p))
	}
	return out
}

// CumulativeResponse is one institution's fiscal-year-to-date total. Period
// echoes the request so callers can discard answers for stale selections.
type CumulativeResponse struct {
	Period      Period    `json:"period"`
	FiscalYear  string    `json:"fiscalYear"`
	Window      []Period  `json:"window"`
	District    string    `json:"district"`
	Institution string    `json:"institution"`
	Key         string    `json:"key"`
	Vector      []float64 `json:"vector"`
	Tier        string    `json:"tier"`
	Degraded    bool      `json:"degraded"`
	ReportsUsed int       `json:"reportsUsed"`
}

// NewCumulativeResponse renders r.
func NewCumulativeResponse(r reportsvc.Result) CumulativeResponse {
	return CumulativeResponse{
		Period:      NewPeriod(r.Period),
		FiscalYear:  fiscal.Label(r.Period.StartYear()),
		Window:      NewWindow(r.Window),
		District:    r.District,
		Institution: r.Institution,
		Key:         r.Key,
		Vector:      r.Vector.Slice(),
		Tier:        string(r.Tier),
		Degraded:    r.Degraded,
		ReportsUsed: r.ReportsUsed,
	}
}

// MatrixRow is one institution of a district matrix.
type MatrixRow struct {
	Institution      string    `json:"institution"`
	Key              string    `json:"key"`
	MonthVector      []float64 `json:"monthVector"`
	CumulativeVector []float64 `json:"cumulativeVector"`
	ReportsUsed      int       `json:"reportsUsed"`
	Degraded         bool      `json:"degraded"`
}

// DistrictTotal sums every row of a matrix.
type DistrictTotal struct {
	MonthVector      []float64 `json:"monthVector"`
	CumulativeVector []float64 `json:"cumulativeVector"`
}

// DistrictMatrixResponse is the district roll-up.
type DistrictMatrixResponse struct {
	Period         Period        `json:"period"`
	FiscalYear     string        `json:"fiscalYear"`
	Window         []Period      `json:"window"`
	District       string        `json:"district"`
	Tier           string        `json:"tier"`
	Degraded       bool          `json:"degraded"`
	PerInstitution []MatrixRow   `json:"perInstitution"`
	DistrictTotal  DistrictTotal `json:"districtTotal"`
}

// NewDistrictMatrixResponse renders m.
func NewDistrictMatrixResponse(m reportsvc.Matrix) DistrictMatrixResponse {
	rows := make([]MatrixRow, 0, len(m.Rows))
	for _, r := range m.Rows {
		rows = append(rows, MatrixRow{
			Institution:      r.Institution,
			Key:              r.Key,
			MonthVector:      r.Month.Slice(),
			CumulativeVector: r.Cumulative.Slice(),
			ReportsUsed:      r.ReportsUsed,
			Degraded:         r.Degraded,
		})
	}
	return DistrictMatrixResponse{
		Period:         NewPeriod(m.Period),
		FiscalYear:     fiscal.Label(m.Period.StartYear()),
		Window:         NewWindow(m.Window),
		District:       m.District,
		Tier:           string(m.Tier),
		Degraded:       m.Degraded,
		PerInstitution: rows,
		DistrictTotal: DistrictTotal{
			MonthVector:      m.MonthTotal.Slice(),
			CumulativeVector: m.DistrictTotal.Slice(),
		},
	}
}

// FiscalWindowResponse lists the periods a cumulative through Period sums.
type FiscalWindowResponse struct {
	Period     Period   `json:"period"`
	FiscalYear string   `json:"fiscalYear"`
	Window     []Period `json:"window"`
}

// NewFiscalWindowResponse renders the window ending at p.
func NewFiscalWindowResponse(p fiscal.Period, w []fiscal.Period) FiscalWindowResponse {
	return FiscalWindowResponse{
		Period:     NewPeriod(p),
		FiscalYear: fiscal.Label(p.StartYear()),
		Window:     NewWindow(w),
	}
}

// CanonicalResponse is a resolved institution name.
type CanonicalResponse struct {
	Name        string   `json:"name"`
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Aliased     bool     `json:"aliased"`
	Coordinator bool     `json:"coordinator"`
	Patterns    []string `json:"patterns"`
}

// NewCanonicalResponse renders the identity of name.
func NewCanonicalResponse(c *canon.Canonicalizer, name string) CanonicalResponse {
	id := c.Resolve(name)
	return CanonicalResponse{
		Name:        name,
		Key:         id.Key,
		Label:       id.Label,
		Aliased:     id.Aliased,
		Coordinator: c.IsCoordinator(name),
		Patterns:    id.Patterns,
	}
}
