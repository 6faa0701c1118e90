package reportsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/api/events"
	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
)

func newReportInput() NewReport {
	return NewReport{
		District:    " Kozhikode ",
		Institution: "B.F.H.C Narikkuni",
		Month:       "mar",
		Year:        "2026",
		Answers:     map[string]interface{}{"q1": "5", "q2": 3, "q84": nil},
	}
}

func TestInsertReport_StoresCanonicalLockedReport(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil, nil)

	r, err := svc.InsertReport(context.Background(), newReportInput())
	require.NoError(t, err)

	assert.False(t, r.ID.IsZero())
	assert.Equal(t, "Kozhikode", r.District)
	assert.Equal(t, "CHC Narikkuni", r.Institution)
	assert.Equal(t, "kozhikode", r.DistrictKey)
	assert.Equal(t, "chc narikkuni", r.InstitutionKey)
	assert.Equal(t, "March", r.Month)
	assert.Equal(t, reportmodels.YearOf(2026), r.Year)
	assert.True(t, r.Locked)
	assert.Equal(t, baseTime, r.CreatedAt)
	assert.Equal(t, 5.0, r.Answers["q1"])
	assert.Equal(t, 3.0, r.Answers["q2"])
	assert.Equal(t, 0.0, r.Answers["q84"])
	require.Len(t, r.EyeBank, 2)
	assert.Equal(t, "Eye Bank", r.EyeBank[0].Name)
	assert.Equal(t, "Eye Collection Centre", r.EyeBank[1].Name)
}

func TestInsertReport_DuplicateSlot(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.InsertReport(ctx, newReportInput())
	require.NoError(t, err)

	again := newReportInput()
	again.Institution = "CHC Narikkuni"
	again.Month = "March"
	_, err = svc.InsertReport(ctx, again)
	assert.ErrorIs(t, err, common.ErrDuplicateReport)
}

func TestInsertReport_Validation(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*NewReport)
		want   error
	}{
		{"bad month", func(in *NewReport) { in.Month = "Smarch" }, common.ErrInvalidPeriod},
		{"short year", func(in *NewReport) { in.Year = "26" }, common.ErrInvalidPeriod},
		{"no institution", func(in *NewReport) { in.Institution = " " }, common.ErrRequiredField},
		{"no district", func(in *NewReport) { in.District = "" }, common.ErrRequiredField},
		{"unknown answer key", func(in *NewReport) { in.Answers = map[string]interface{}{"q85": 1} }, common.ErrInvalidInput},
		{"negative answer", func(in *NewReport) { in.Answers = map[string]interface{}{"q1": -1} }, common.ErrInvalidInput},
		{"text answer", func(in *NewReport) { in.Answers = map[string]interface{}{"q1": "many"} }, common.ErrInvalidInput},
		{"one eye bank row", func(in *NewReport) {
			in.EyeBank = []reportmodels.EyeBankRow{{Name: "Eye Bank"}}
		}, common.ErrInvalidInput},
		{"unexpected eye bank row", func(in *NewReport) {
			in.EyeBank = []reportmodels.EyeBankRow{{Name: "Eye Bank"}, {Name: "Cornea Lab"}}
		}, common.ErrInvalidInput},
		{"too many vision centres", func(in *NewReport) {
			in.VisionCenter = make([]reportmodels.VisionCenterRow, reportmodels.MaxVisionCenters+1)
			for i := range in.VisionCenter {
				in.VisionCenter[i].Name = "VC"
			}
		}, common.ErrInvalidInput},
		{"unnamed vision centre", func(in *NewReport) {
			in.VisionCenter = []reportmodels.VisionCenterRow{{Screened: 4}}
		}, common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newReportInput()
			tt.mutate(&in)
			_, err := svc.InsertReport(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInsertReport_EyeBankRowsReordered(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	in := newReportInput()
	in.EyeBank = []reportmodels.EyeBankRow{
		{Name: "eye  collection centre", Collected: 2},
		{Name: "Eye Bank", Collected: 7},
	}

	r, err := svc.InsertReport(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, reportmodels.EyeBankRow{Name: "Eye Bank", Collected: 7}, r.EyeBank[0])
	assert.Equal(t, reportmodels.EyeBankRow{Name: "Eye Collection Centre", Collected: 2}, r.EyeBank[1])
}

func TestUpdateReport_RequiresUnlock(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	r, err := svc.InsertReport(ctx, newReportInput())
	require.NoError(t, err)
	id := r.ID.Hex()

	content := ReportContent{Answers: map[string]interface{}{"q1": 9}}
	_, err = svc.UpdateReport(ctx, id, content)
	assert.ErrorIs(t, err, common.ErrReportLocked)

	unlocked, err := svc.SetLocked(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, unlocked.Locked)

	updated, err := svc.UpdateReport(ctx, id, content)
	require.NoError(t, err)
	assert.True(t, updated.Locked)
	assert.Equal(t, 9.0, updated.Answers["q1"])

	_, err = svc.UpdateReport(ctx, id, ReportContent{Answers: map[string]interface{}{"q1": -2}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUpdateReport_NotFound(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil, nil)
	missing := "64b000000000000000000000"

	_, err := svc.UpdateReport(context.Background(), missing, ReportContent{})
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.SetLocked(context.Background(), missing, true)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.FindReportByID(context.Background(), missing)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFindReports_ByAnySpelling(t *testing.T) {
	svc := newTestService(kozhikodeReports(), nil, nil)

	list, err := svc.FindReports(context.Background(), "Kozhikode", "BFHC Narikkuni", "April", "2025")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "CHC Narikkuni", list[0].Institution)

	list, err = svc.FindReports(context.Background(), "Kozhikode", "", "", "2026")
	require.NoError(t, err)
	assert.Len(t, list, 6)
}

func TestRebuildSnapshots(t *testing.T) {
	rc, _ := newMiniCache(t)
	repo := kozhikodeReports()
	dirty := &fakeDirty{}
	svc := newTestService(repo, dirty, rc)
	ctx := context.Background()

	d := reportmodels.ReportDirtyPeriod{
		DistrictKey:     "kozhikode",
		InstitutionKey:  "chc narikkuni",
		District:        "Kozhikode",
		Institution:     "CHC Narikkuni",
		FiscalStartYear: 2025,
	}
	written, err := svc.RebuildSnapshots(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 12, written)
	require.Len(t, dirty.processed, 1)

	var march reportmodels.Report
	for _, r := range repo.reports {
		if r.Institution == "CHC Narikkuni" && r.Month == "March" {
			march = r
		}
	}
	require.Contains(t, repo.saved, march.ID)
	assert.Equal(t, 12.0, repo.saved[march.ID]["q1"])
	assert.Equal(t, 78.0, repo.saved[march.ID]["q2"])

	snap, err := rc.Snapshot(ctx, "kozhikode", "chc narikkuni", fiscal.Period{Month: fiscal.June, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 3.0, snap.Vector[0])
	assert.Equal(t, 6.0, snap.Vector[1])
}

func TestMarkFiscalYearDirty(t *testing.T) {
	repo := kozhikodeReports()
	repo.reports = append(repo.reports,
		report("DPM Kozhikode", "May", 2025, 1, 1, 1),
		report("GH Kozhikode", "April", 2026, 1, 1, 1),
		report("BFHC Narikkuni", "May", 2025, 1, 1, 1),
	)
	dirty := &fakeDirty{}
	svc := newTestService(repo, dirty, nil)

	n, err := svc.MarkFiscalYearDirty(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := svc.PendingDirty(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	for _, p := range pending {
		assert.Equal(t, 2025, p.FiscalStartYear)
		assert.Equal(t, "kozhikode", p.DistrictKey)
	}
}

func TestCurrentFiscalStartYear(t *testing.T) {
	assert.Equal(t, 2025, CurrentFiscalStartYear(baseTime))
	assert.Equal(t, 2025, CurrentFiscalStartYear(baseTime.AddDate(0, 11, 0)))
	assert.Equal(t, 2024, CurrentFiscalStartYear(baseTime.AddDate(0, -1, 0)))
}

func TestHandleReportDataChange(t *testing.T) {
	rc, _ := newMiniCache(t)
	dirty := &fakeDirty{}
	svc := newTestService(newFakeRepo(), dirty, rc)
	ctx := context.Background()

	r := report("BFHC Narikkuni", "February", 2026, 1, 0, 1)
	svc.handleReportDataChange(ctx, events.DataChangeEvent{CollectionName: "reports", Operation: events.OpInsert, Document: &r})

	require.Len(t, dirty.marked, 1)
	assert.Equal(t, "chc narikkuni", dirty.marked[0].InstitutionKey)
	assert.Equal(t, 2025, dirty.marked[0].FiscalStartYear)

	mirrored, err := svc.mirror.FindReportByID(ctx, r.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, mirrored)
	assert.Equal(t, r.Institution, mirrored.Institution)

	svc.handleReportDataChange(ctx, events.DataChangeEvent{CollectionName: "reports", Operation: events.OpLock, Document: &r})
	svc.handleReportDataChange(ctx, events.DataChangeEvent{CollectionName: "other", Operation: events.OpInsert, Document: &r})
	assert.Len(t, dirty.marked, 1)
}

func TestRegisterHooks_InsertQueuesRebuild(t *testing.T) {
	events.ResetHandlers()
	t.Cleanup(events.ResetHandlers)

	dirty := &fakeDirty{}
	svc := newTestService(newFakeRepo(), dirty, nil)
	svc.RegisterHooks()

	r, err := svc.InsertReport(context.Background(), newReportInput())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		dirty.mu.Lock()
		defer dirty.mu.Unlock()
		return len(dirty.marked) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, r.InstitutionKey, dirty.marked[0].InstitutionKey)
}
