package reportsvc

import (
	"context"
	"time"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/api/events"
	"optometry_report/internal/logger"
)

// RegisterHooks subscribes s to report data changes.
func (s *ReportService) RegisterHooks() {
	events.OnDataChanged(s.handleReportDataChange)
}

// handleReportDataChange refreshes the mirror for every report write and
// queues a snapshot rebuild when counts changed.
func (s *ReportService) handleReportDataChange(ctx context.Context, e events.DataChangeEvent) {
	if e.CollectionName != s.collName {
		return
	}
	r, ok := e.Document.(*reportmodels.Report)
	if !ok || r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	log := logger.WithModule("report").WithFields(map[string]interface{}{
		"operation": e.Operation,
		"report_id": r.ID.Hex(),
	})
	if err := s.mirror.Remember(ctx, []reportmodels.Report{*r}); err != nil {
		log.WithError(err).Warn("Failed to mirror report")
	}
	if e.Operation != events.OpInsert && e.Operation != events.OpUpdate {
		return
	}
	if err := s.MarkDirty(ctx, r); err != nil {
		log.WithError(err).Warn("Failed to mark fiscal year dirty")
	}
}
