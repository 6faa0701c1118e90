package reportsvc

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/answer"
	"optometry_report/internal/canon"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/logger"
)

// reportPeriod parses the month and year stored on r.
func reportPeriod(r *reportmodels.Report) (fiscal.Period, bool) {
	m, err := fiscal.ParseMonth(r.Month)
	if err != nil {
		return fiscal.Period{}, false
	}
	y := r.Year.Int()
	if y < 1000 || y > 9999 {
		return fiscal.Period{}, false
	}
	return fiscal.Period{Month: m, Year: y}, true
}

// windowBucket keys reports by period, dropping those outside window.
func windowBucket(window []fiscal.Period) BucketFunc {
	return func(r *reportmodels.Report) string {
		p, ok := reportPeriod(r)
		if !ok || !fiscal.Contains(window, p) {
			return ""
		}
		return p.Key()
	}
}

// Accumulation is the fold of one institution's reports over a window.
type Accumulation struct {
	Cumulative answer.Vector
	Month      answer.Vector // the target period alone
	Selected   map[string]*reportmodels.Report
	Duplicates int
}

// ReportsUsed is the number of window slots that contributed.
func (a Accumulation) ReportsUsed() int { return len(a.Selected) }

// Accumulate selects the latest report per window slot of one institution and
// sums their answers. Reports outside window never contribute, however recent.
func Accumulate(reports []reportmodels.Report, window []fiscal.Period) Accumulation {
	selected, dups := SelectLatest(reports, windowBucket(window))
	acc := Accumulation{Selected: selected, Duplicates: dups}
	if len(window) == 0 {
		return acc
	}
	target := window[len(window)-1].Key()
	for _, p := range window {
		r, ok := selected[p.Key()]
		if !ok {
			continue
		}
		v := r.Vector()
		acc.Cumulative = acc.Cumulative.Add(v)
		if p.Key() == target {
			acc.Month = v
		}
	}
	return acc
}

// MatrixRow is one institution of a district matrix.
type MatrixRow struct {
	Institution string        `json:"institution"`
	Key         string        `json:"key"`
	Month       answer.Vector `json:"monthVector"`
	Cumulative  answer.Vector `json:"cumulativeVector"`
	ReportsUsed int           `json:"reportsUsed"`
	Degraded    bool          `json:"degraded,omitempty"`
}

type institutionGroup struct {
	key     string
	label   string
	reports []reportmodels.Report
}

// groupByInstitution splits district reports per canonical institution,
// skipping coordinator pseudo-institutions. Every institution observed in the
// district gets a group, including ones with nothing in the window.
func groupByInstitution(c *canon.Canonicalizer, reports []reportmodels.Report) []*institutionGroup {
	byKey := map[string]*institutionGroup{}
	for i := range reports {
		r := &reports[i]
		if canon.Normalize(r.Institution) == "" || c.IsCoordinator(r.Institution) {
			continue
		}
		k := c.Key(r.Institution)
		g, ok := byKey[k]
		if !ok {
			g = &institutionGroup{key: k, label: c.Label(r.Institution)}
			byKey[k] = g
		}
		g.reports = append(g.reports, *r)
	}

	groups := make([]*institutionGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].label != groups[j].label {
			return groups[i].label < groups[j].label
		}
		return groups[i].key < groups[j].key
	})
	return groups
}

// rowFunc computes one matrix row; replaced in tests.
var rowFunc = func(ctx context.Context, g *institutionGroup, window []fiscal.Period) (MatrixRow, error) {
	if err := ctx.Err(); err != nil {
		return MatrixRow{}, err
	}
	acc := Accumulate(g.reports, window)
	return MatrixRow{
		Institution: g.label,
		Key:         g.key,
		Month:       acc.Month,
		Cumulative:  acc.Cumulative,
		ReportsUsed: acc.ReportsUsed(),
	}, nil
}

// BuildMatrix computes one row per institution concurrently, at most limit at
// a time. A row that fails or panics becomes a zero row flagged Degraded; the
// returned bool reports whether any row degraded.
func BuildMatrix(ctx context.Context, c *canon.Canonicalizer, reports []reportmodels.Report, window []fiscal.Period, limit int) ([]MatrixRow, bool) {
	groups := groupByInstitution(c, reports)
	rows := make([]MatrixRow, len(groups))
	if limit <= 0 {
		limit = 8
	}

	var eg errgroup.Group
	eg.SetLimit(limit)
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			row, err := safeRow(ctx, g, window)
			if err != nil {
				logger.WithModule("aggregator").WithError(err).WithField("institution", g.label).
					Warn("Matrix row failed, returning zero row")
				row = MatrixRow{Institution: g.label, Key: g.key, Degraded: true}
			}
			rows[i] = row
			return nil
		})
	}
	_ = eg.Wait()

	degraded := false
	for _, r := range rows {
		if r.Degraded {
			degraded = true
			break
		}
	}
	return rows, degraded
}

func safeRow(ctx context.Context, g *institutionGroup, window []fiscal.Period) (row MatrixRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rowFunc(ctx, g, window)
}

// DistrictTotal sums the rows elementwise.
func DistrictTotal(rows []MatrixRow) (month, cumulative answer.Vector) {
	for _, r := range rows {
		month = month.Add(r.Month)
		cumulative = cumulative.Add(r.Cumulative)
	}
	return month, cumulative
}
