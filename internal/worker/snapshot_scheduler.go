package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	reportsvc "optometry_report/internal/api/report/service"
	"optometry_report/internal/logger"
)

// FiscalYearMarker queues every institution of a fiscal year for rebuild.
type FiscalYearMarker interface {
	MarkFiscalYearDirty(ctx context.Context, startYear int) (int, error)
}

// SnapshotScheduler periodically marks the current fiscal year dirty so the
// SnapshotWorker rebuilds every stored snapshot, including ones whose events
// were lost.
type SnapshotScheduler struct {
	cron   *cron.Cron
	marker FiscalYearMarker
	now    func() time.Time
}

// NewSnapshotScheduler schedules a full rebuild on spec (standard five-field
// cron syntax). Overlapping runs are skipped.
func NewSnapshotScheduler(marker FiscalYearMarker, spec string) (*SnapshotScheduler, error) {
	cronLog := cron.PrintfLogger(logger.GetAppLogger())
	s := &SnapshotScheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		marker: marker,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Run(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling in the background.
func (s *SnapshotScheduler) Start() {
	logger.GetAppLogger().Info("🗓️ [SNAPSHOT_CRON] Snapshot scheduler started")
	s.cron.Start()
}

// Stop halts scheduling; the returned context is done once a running job ends.
func (s *SnapshotScheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Run marks the fiscal year containing now and returns the number of slots
// queued.
func (s *SnapshotScheduler) Run(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	startYear := reportsvc.CurrentFiscalStartYear(s.now())
	n, err := s.marker.MarkFiscalYearDirty(ctx, startYear)
	log := logger.GetAppLogger().WithField("fiscalStartYear", startYear)
	if err != nil {
		log.WithError(err).Error("🗓️ [SNAPSHOT_CRON] Failed to mark fiscal year dirty")
		return n
	}
	log.WithField("queued", n).Info("🗓️ [SNAPSHOT_CRON] Fiscal year queued for snapshot rebuild")
	return n
}
