package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reportmodels "optometry_report/internal/api/report/models"
)

type fakeRebuilder struct {
	mu        sync.Mutex
	pending   []reportmodels.ReportDirtyPeriod
	failKey   string
	panicKey  string
	loadErr   error
	rebuilt   []string
	lastLimit int
}

func (f *fakeRebuilder) PendingDirty(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.pending, nil
}

func (f *fakeRebuilder) RebuildSnapshots(ctx context.Context, d reportmodels.ReportDirtyPeriod) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch d.InstitutionKey {
	case f.failKey:
		return 0, errors.New("store unavailable")
	case f.panicKey:
		panic("corrupt document")
	}
	f.rebuilt = append(f.rebuilt, d.InstitutionKey)
	return 3, nil
}

func dirty(keys ...string) []reportmodels.ReportDirtyPeriod {
	out := make([]reportmodels.ReportDirtyPeriod, 0, len(keys))
	for _, k := range keys {
		out = append(out, reportmodels.ReportDirtyPeriod{DistrictKey: "kozhikode", InstitutionKey: k, FiscalStartYear: 2025})
	}
	return out
}

func TestSnapshotWorker_RunOnce(t *testing.T) {
	f := &fakeRebuilder{pending: dirty("chc narikkuni", "thqh koyilandy", "gh kozhikode"), failKey: "thqh koyilandy"}
	w := NewSnapshotWorker(f, time.Minute, 20)

	assert.Equal(t, 2, w.RunOnce(context.Background()))
	assert.Equal(t, []string{"chc narikkuni", "gh kozhikode"}, f.rebuilt)
	assert.Equal(t, 20, f.lastLimit)
}

func TestSnapshotWorker_RunOnceSurvivesPanic(t *testing.T) {
	f := &fakeRebuilder{pending: dirty("chc narikkuni", "bad"), panicKey: "bad"}
	w := NewSnapshotWorker(f, time.Minute, 0)

	assert.NotPanics(t, func() { w.RunOnce(context.Background()) })
	assert.Equal(t, []string{"chc narikkuni"}, f.rebuilt)
	assert.Equal(t, 50, f.lastLimit)
}

func TestSnapshotWorker_LoadError(t *testing.T) {
	f := &fakeRebuilder{loadErr: errors.New("no primary")}
	w := NewSnapshotWorker(f, time.Minute, 5)
	assert.Zero(t, w.RunOnce(context.Background()))
}

func TestSnapshotWorker_StartStopsOnCancel(t *testing.T) {
	w := NewSnapshotWorker(&fakeRebuilder{}, 0, 5)
	assert.Equal(t, time.Minute, w.interval)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakeMarker struct {
	years []int
	err   error
}

func (m *fakeMarker) MarkFiscalYearDirty(ctx context.Context, startYear int) (int, error) {
	m.years = append(m.years, startYear)
	return 7, m.err
}

func TestSnapshotScheduler_RunMarksCurrentFiscalYear(t *testing.T) {
	m := &fakeMarker{}
	s, err := NewSnapshotScheduler(m, "0 2 * * *")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2026, time.February, 10, 2, 0, 0, 0, time.UTC) }
	assert.Equal(t, 7, s.Run(context.Background()))
	s.now = func() time.Time { return time.Date(2026, time.April, 1, 2, 0, 0, 0, time.UTC) }
	s.Run(context.Background())

	assert.Equal(t, []int{2025, 2026}, m.years)
}

func TestSnapshotScheduler_InvalidSpec(t *testing.T) {
	_, err := NewSnapshotScheduler(&fakeMarker{}, "every night")
	assert.Error(t, err)
}

func TestSnapshotScheduler_StartStop(t *testing.T) {
	s, err := NewSnapshotScheduler(&fakeMarker{}, "@daily")
	require.NoError(t, err)
	s.Start()
	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
