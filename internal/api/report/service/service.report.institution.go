package reportsvc

import (
	"context"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/canon"
)

// reportsOf keeps the reports whose institution resolves to key.
func reportsOf(c *canon.Canonicalizer, key string, reports []reportmodels.Report) []reportmodels.Report {
	out := make([]reportmodels.Report, 0, len(reports))
	for _, r := range reports {
		if c.Key(r.Institution) == key {
			out = append(out, r)
		}
	}
	return out
}

// findInstitution loads one institution's reports through the same
// district-wide query the matrix uses and keeps those whose name resolves to
// key. A single cumulative and its matrix row therefore read the same
// documents, whatever spacing or width the stored names use.
func findInstitution(ctx context.Context, store ReportStore, c *canon.Canonicalizer, f ReportFilter, key string) ([]reportmodels.Report, error) {
	f.InstitutionPatterns = nil
	f.InstitutionKey = ""
	reports, err := store.FindReports(ctx, f)
	if err != nil {
		return nil, err
	}
	return reportsOf(c, key, reports), nil
}
