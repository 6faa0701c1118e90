// Package worker runs the background jobs that keep stored cumulative
// snapshots current.
package worker

import (
	"context"
	"time"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/logger"
)

// SnapshotRebuilder is the part of ReportService the worker drives.
type SnapshotRebuilder interface {
	PendingDirty(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error)
	RebuildSnapshots(ctx context.Context, d reportmodels.ReportDirtyPeriod) (int, error)
}

// SnapshotWorker drains report_dirty_periods: every interval it takes up to
// batchSize unprocessed slots and rebuilds their fiscal-year snapshots.
type SnapshotWorker struct {
	service   SnapshotRebuilder
	interval  time.Duration
	batchSize int
}

// NewSnapshotWorker builds a worker. Intervals under 10s fall back to one
// minute; a non-positive batch falls back to 50.
func NewSnapshotWorker(service SnapshotRebuilder, interval time.Duration, batchSize int) *SnapshotWorker {
	if interval < 10*time.Second {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SnapshotWorker{
		service:   service,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start runs until ctx is cancelled.
func (w *SnapshotWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"batchSize": w.batchSize,
	}).Info("📊 [SNAPSHOT] Starting snapshot worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info("📊 [SNAPSHOT] Snapshot worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes one batch and returns the number of slots rebuilt. A
// failing slot stays unprocessed and is retried on the next tick.
func (w *SnapshotWorker) RunOnce(ctx context.Context) (processed int) {
	log := logger.GetAppLogger()
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(map[string]interface{}{
				"panic": r,
			}).Error("📊 [SNAPSHOT] Panic while rebuilding snapshots, retrying next tick")
		}
	}()

	list, err := w.service.PendingDirty(ctx, w.batchSize)
	if err != nil {
		log.WithError(err).Error("📊 [SNAPSHOT] Failed to load dirty slots")
		return 0
	}
	if len(list) == 0 {
		return 0
	}

	months := 0
	for _, d := range list {
		if ctx.Err() != nil {
			break
		}
		n, err := w.service.RebuildSnapshots(ctx, d)
		if err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"district":    d.DistrictKey,
				"institution": d.InstitutionKey,
				"fiscalYear":  d.FiscalStartYear,
			}).Warn("📊 [SNAPSHOT] Rebuild failed, will retry")
			continue
		}
		months += n
		processed++
	}

	if processed > 0 {
		log.WithFields(map[string]interface{}{
			"processed": processed,
			"total":     len(list),
			"months":    months,
		}).Info("📊 [SNAPSHOT] Rebuilt cumulative snapshots")
	}
	return processed
}
