package reportsvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/cache"
	"optometry_report/internal/canon"
	"optometry_report/internal/common"
)

// fakeRepo is an in-memory ReportRepository applying filters like the Mongo
// store does.
type fakeRepo struct {
	mu      sync.Mutex
	reports []reportmodels.Report
	err     error // returned by every read when set
	saved   map[primitive.ObjectID]map[string]float64
	calls   int
}

func newFakeRepo(reports ...reportmodels.Report) *fakeRepo {
	for i := range reports {
		if reports[i].ID.IsZero() {
			reports[i].ID = primitive.NewObjectID()
		}
	}
	return &fakeRepo{reports: reports, saved: map[primitive.ObjectID]map[string]float64{}}
}

func (f *fakeRepo) FindReports(ctx context.Context, filter ReportFilter) ([]reportmodels.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := []reportmodels.Report{}
	for _, r := range f.reports {
		ff := filter
		if ff.District == "" {
			ff.District = r.District
		}
		match, err := mirrorMatcher(ff)
		if err != nil {
			return nil, err
		}
		if match(&r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindReportByID(ctx context.Context, id string) (*reportmodels.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.reports {
		if f.reports[i].ID.Hex() == id {
			r := f.reports[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) InsertReport(ctx context.Context, r *reportmodels.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cur := range f.reports {
		if cur.DistrictKey == r.DistrictKey && cur.InstitutionKey == r.InstitutionKey &&
			cur.Month == r.Month && cur.Year == r.Year {
			return common.ErrDuplicateReport
		}
	}
	r.ID = primitive.NewObjectID()
	f.reports = append(f.reports, *r)
	return nil
}

func (f *fakeRepo) find(id string) (*reportmodels.Report, error) {
	for i := range f.reports {
		if f.reports[i].ID.Hex() == id {
			return &f.reports[i], nil
		}
	}
	return nil, common.ErrNotFound
}

func (f *fakeRepo) UpdateContent(ctx context.Context, id string, c ReportContent, at time.Time) (*reportmodels.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.find(id)
	if err != nil {
		return nil, err
	}
	if r.Locked {
		return nil, common.ErrReportLocked
	}
	r.Answers, r.EyeBank, r.VisionCenter = c.Answers, c.EyeBank, c.VisionCenter
	r.UpdatedAt, r.Locked = at, true
	out := *r
	return &out, nil
}

func (f *fakeRepo) SetLocked(ctx context.Context, id string, locked bool) (*reportmodels.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, err := f.find(id)
	if err != nil {
		return nil, err
	}
	r.Locked = locked
	out := *r
	return &out, nil
}

func (f *fakeRepo) SaveCumulative(ctx context.Context, id primitive.ObjectID, cumulative map[string]float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[id] = cumulative
	return nil
}

func (f *fakeRepo) FindFiscalYear(ctx context.Context, startYear int) ([]reportmodels.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []reportmodels.Report
	for _, r := range f.reports {
		if y := r.Year.Int(); y == startYear || y == startYear+1 {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeDirty struct {
	mu        sync.Mutex
	marked    []reportmodels.ReportDirtyPeriod
	processed []reportmodels.ReportDirtyPeriod
}

func (d *fakeDirty) MarkDirty(ctx context.Context, p reportmodels.ReportDirtyPeriod) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.marked = append(d.marked, p)
	return nil
}

func (d *fakeDirty) GetUnprocessed(ctx context.Context, limit int) ([]reportmodels.ReportDirtyPeriod, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.marked) < limit || limit <= 0 {
		limit = len(d.marked)
	}
	return append([]reportmodels.ReportDirtyPeriod(nil), d.marked[:limit]...), nil
}

func (d *fakeDirty) SetProcessed(ctx context.Context, p reportmodels.ReportDirtyPeriod) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.processed = append(d.processed, p)
	return nil
}

var testCanon = canon.MustNew(canon.AliasTable{
	"CHC Narikkuni":  {"BFHC Narikkuni", "B.F.H.C Narikkuni"},
	"THQH Koyilandy": {"THQH Quilandy"},
}, canon.WithCoordinatorPrefixes("DPM"))

var baseTime = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

// report builds a Kozhikode report with answers q1=a1, q2=a2.
func report(institution, month string, year int, a1, a2 float64, updatedDays int) reportmodels.Report {
	return reportmodels.Report{
		ID:          primitive.NewObjectID(),
		District:    "Kozhikode",
		Institution: institution,
		Month:       month,
		Year:        reportmodels.YearOf(year),
		Answers:     map[string]interface{}{"q1": a1, "q2": a2},
		UpdatedAt:   baseTime.AddDate(0, 0, updatedDays),
	}
}

var errStoreDown = common.WithDetails(common.ErrStoreUnavailable, "dial tcp: connection refused")

func (f *fakeRepo) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newMiniCache(t *testing.T) (*cache.ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewReportCache(cache.NewRedisKVStore(client), time.Hour, time.Hour), mr
}

func newTestService(repo *fakeRepo, dirty *fakeDirty, rc *cache.ReportCache) *ReportService {
	s := New(Deps{Repo: repo, Dirty: dirty, Canon: testCanon, Cache: rc, Concurrency: 4})
	s.now = func() time.Time { return baseTime }
	return s
}
