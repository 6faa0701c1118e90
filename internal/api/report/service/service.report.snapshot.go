package reportsvc

import (
	"context"
	"time"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/answer"
	"optometry_report/internal/canon"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/logger"
)

// MarkDirty queues the fiscal year of r for snapshot rebuild.
func (s *ReportService) MarkDirty(ctx context.Context, r *reportmodels.Report) error {
	if s.dirty == nil {
		return nil
	}
	p, ok := reportPeriod(r)
	if !ok {
		return nil
	}
	return s.dirty.MarkDirty(ctx, reportmodels.ReportDirtyPeriod{
		DistrictKey:     canon.Normalize(r.District),
		InstitutionKey:  s.canon.Key(r.Institution),
		District:        r.District,
		Institution:     r.Institution,
		FiscalStartYear: p.StartYear(),
	})
}

// MarkFiscalYearDirty queues every institution that reported in the fiscal
// year starting in startYear. It returns the number of slots queued.
func (s *ReportService) MarkFiscalYearDirty(ctx context.Context, startYear int) (int, error) {
	reports, err := s.repo.FindFiscalYear(ctx, startYear)
	if err != nil {
		return 0, err
	}
	year := fiscal.FullYear(startYear)
	seen := map[string]bool{}
	marked := 0
	for i := range reports {
		r := &reports[i]
		p, ok := reportPeriod(r)
		if !ok || !fiscal.Contains(year, p) || s.canon.IsCoordinator(r.Institution) {
			continue
		}
		slot := canon.Normalize(r.District) + "|" + s.canon.Key(r.Institution)
		if seen[slot] {
			continue
		}
		seen[slot] = true
		if err := s.MarkDirty(ctx, r); err != nil {
			return marked, err
		}
		marked++
	}
	return marked, nil
}

// PendingDirty returns up to limit queued slots.
func (s *ReportService) PendingDirty(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error) {
	if s.dirty == nil {
		return nil, nil
	}
	return s.dirty.GetUnprocessed(ctx, limit)
}

// RebuildSnapshots recomputes the stored cumulative of every month of the
// slot's fiscal year that has a report, writes it to that report and the
// snapshot cache, then marks the slot processed. It returns the number of
// months written.
func (s *ReportService) RebuildSnapshots(ctx context.Context, d reportmodels.ReportDirtyPeriod) (int, error) {
	id := s.canon.Resolve(d.Institution)
	reports, err := findInstitution(ctx, s.repo, s.canon, ReportFilter{District: d.District}, id.Key)
	if err != nil {
		return 0, err
	}

	year := fiscal.FullYear(d.FiscalStartYear)
	selected, _ := SelectLatest(reports, windowBucket(year))
	now := s.now().UTC()
	log := logger.WithModule("snapshot")

	var running answer.Vector
	written := 0
	for _, p := range year {
		r, ok := selected[p.Key()]
		if !ok {
			continue
		}
		running = running.Add(r.Vector())
		if err := s.repo.SaveCumulative(ctx, r.ID, running.ToMap(), now); err != nil {
			return written, err
		}
		if err := s.cache.PutSnapshot(ctx, d.DistrictKey, id.Key, p, running, now); err != nil {
			log.WithError(err).WithField("period", p.Key()).Warn("Failed to cache snapshot")
		}
		written++
	}

	if err := s.mirror.Remember(ctx, reports); err != nil {
		log.WithError(err).Warn("Failed to refresh report mirror")
	}
	if s.dirty != nil {
		if err := s.dirty.SetProcessed(ctx, d); err != nil {
			return written, err
		}
	}
	return written, nil
}

// CurrentFiscalStartYear is the start year of the fiscal year containing t.
func CurrentFiscalStartYear(t time.Time) int {
	p := fiscal.Period{Month: fiscal.MonthOf(t.Month()), Year: t.Year()}
	return p.StartYear()
}
