package reportsvc

import (
	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/logger"
)

// BucketFunc maps a report to its slot id. An empty id drops the report.
type BucketFunc func(r *reportmodels.Report) string

// SelectLatest keeps one report per bucket: the greatest updatedAt, falling
// back to createdAt, then the epoch. On equal recency the report seen last
// wins. It returns the winners and the number of buckets that held more than
// one report.
func SelectLatest(reports []reportmodels.Report, bucket BucketFunc) (map[string]*reportmodels.Report, int) {
	latest := make(map[string]*reportmodels.Report, len(reports))
	seen := make(map[string]int, len(reports))

	for i := range reports {
		r := &reports[i]
		id := bucket(r)
		if id == "" {
			continue
		}
		seen[id]++
		if cur, ok := latest[id]; ok && r.Recency().Before(cur.Recency()) {
			continue
		}
		latest[id] = r
	}

	duplicates := 0
	for id, n := range seen {
		if n < 2 {
			continue
		}
		duplicates++
		winner := latest[id]
		logger.WithModule("aggregator").WithFields(map[string]interface{}{
			"bucket":    id,
			"count":     n,
			"report_id": winner.ID.Hex(),
			"recency":   winner.Recency(),
		}).Warn("Ambiguous duplicate reports, latest kept")
	}
	return latest, duplicates
}
