package reportsvc

import (
	"context"
	"strings"
	"time"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/answer"
	"optometry_report/internal/cache"
	"optometry_report/internal/canon"
	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/logger"
)

// Tier names where a result came from.
type Tier string

const (
	TierAuthoritative  Tier = "authoritative"
	TierLocalFallback  Tier = "local-fallback"
	TierStoredSnapshot Tier = "stored-snapshot"
	TierEmpty          Tier = "empty"
)

// CumulativeQuery is one resolved single-institution request.
type CumulativeQuery struct {
	District    string
	DistrictKey string
	Identity    canon.Identity
	Period      fiscal.Period
	Window      []fiscal.Period
}

// CumulativeAnswer is what a provider found.
type CumulativeAnswer struct {
	Vector      answer.Vector
	ReportsUsed int
}

// CumulativeProvider is one tier of the single-institution chain. It returns
// nil, nil when it has nothing for the query.
type CumulativeProvider interface {
	Tier() Tier
	Cumulative(ctx context.Context, q CumulativeQuery) (*CumulativeAnswer, error)
}

// MatrixQuery is one resolved district request.
type MatrixQuery struct {
	District    string
	DistrictKey string
	Period      fiscal.Period
	Window      []fiscal.Period
}

// MatrixAnswer is what a matrix provider found.
type MatrixAnswer struct {
	Rows     []MatrixRow
	Degraded bool
}

// MatrixProvider is one tier of the district chain. It returns nil, nil when
// it has nothing for the query.
type MatrixProvider interface {
	Tier() Tier
	Matrix(ctx context.Context, q MatrixQuery) (*MatrixAnswer, error)
}

// StoreProvider computes answers from a ReportStore. With snapshots or mirror
// set, authoritative results are written through to them.
type StoreProvider struct {
	tier      Tier
	store     ReportStore
	canon     *canon.Canonicalizer
	limit     int
	snapshots *cache.ReportCache
	mirror    *MirrorStore
}

// NewStoreProvider serves tier from store. limit bounds matrix fan-out.
func NewStoreProvider(tier Tier, store ReportStore, c *canon.Canonicalizer, limit int) *StoreProvider {
	return &StoreProvider{tier: tier, store: store, canon: c, limit: limit}
}

// WithWriteThrough records authoritative results in the snapshot cache and
// mirror.
func (p *StoreProvider) WithWriteThrough(snapshots *cache.ReportCache, mirror *MirrorStore) *StoreProvider {
	p.snapshots = snapshots
	p.mirror = mirror
	return p
}

func (p *StoreProvider) Tier() Tier { return p.tier }

func (p *StoreProvider) Cumulative(ctx context.Context, q CumulativeQuery) (*CumulativeAnswer, error) {
	reports, err := p.store.FindReports(ctx, ReportFilter{District: q.District})
	if err != nil {
		return nil, err
	}
	acc := Accumulate(reportsOf(p.canon, q.Identity.Key, reports), q.Window)
	if acc.ReportsUsed() == 0 {
		return nil, nil
	}
	p.writeThrough(ctx, reports, func(ctx context.Context) error {
		return p.snapshots.PutSnapshot(ctx, q.DistrictKey, q.Identity.Key, q.Period, acc.Cumulative, time.Now())
	})
	return &CumulativeAnswer{Vector: acc.Cumulative, ReportsUsed: acc.ReportsUsed()}, nil
}

func (p *StoreProvider) Matrix(ctx context.Context, q MatrixQuery) (*MatrixAnswer, error) {
	reports, err := p.store.FindReports(ctx, ReportFilter{District: q.District})
	if err != nil {
		return nil, err
	}
	rows, degraded := BuildMatrix(ctx, p.canon, reports, q.Window, p.limit)
	if len(rows) == 0 {
		return nil, nil
	}
	p.writeThrough(ctx, reports, nil)
	return &MatrixAnswer{Rows: rows, Degraded: degraded}, nil
}

func (p *StoreProvider) writeThrough(ctx context.Context, reports []reportmodels.Report, snapshot func(context.Context) error) {
	log := logger.WithModule("aggregator")
	if p.snapshots.Enabled() && snapshot != nil {
		if err := snapshot(ctx); err != nil {
			log.WithError(err).Warn("Failed to store cumulative snapshot")
		}
	}
	if p.mirror != nil {
		if err := p.mirror.Remember(ctx, reports); err != nil {
			log.WithError(err).Warn("Failed to refresh report mirror")
		}
	}
}

// SnapshotProvider serves previously stored cumulative vectors for the exact
// period: the snapshot cache first, then the legacy cumulative field of the
// latest report for that period in each store.
type SnapshotProvider struct {
	cache  *cache.ReportCache
	canon  *canon.Canonicalizer
	stores []ReportStore
}

func NewSnapshotProvider(rc *cache.ReportCache, c *canon.Canonicalizer, stores ...ReportStore) *SnapshotProvider {
	return &SnapshotProvider{cache: rc, canon: c, stores: stores}
}

func (p *SnapshotProvider) Tier() Tier { return TierStoredSnapshot }

func (p *SnapshotProvider) Cumulative(ctx context.Context, q CumulativeQuery) (*CumulativeAnswer, error) {
	var lastErr error
	snap, err := p.cache.Snapshot(ctx, q.DistrictKey, q.Identity.Key, q.Period)
	switch {
	case err == nil:
		return &CumulativeAnswer{Vector: snap.Vector}, nil
	case !cache.IsMiss(err):
		lastErr = common.WithDetails(common.ErrStoreUnavailable, err.Error())
	}

	for _, store := range p.stores {
		reports, err := findInstitution(ctx, store, p.canon, ReportFilter{
			District: q.District,
			Month:    q.Period.Month.String(),
			Year:     q.Period.YearString(),
		}, q.Identity.Key)
		if err != nil {
			lastErr = err
			continue
		}
		withSnapshot := reports[:0:0]
		for _, r := range reports {
			if r.HasCumulative() {
				withSnapshot = append(withSnapshot, r)
			}
		}
		latest, _ := SelectLatest(withSnapshot, func(*reportmodels.Report) string { return q.Period.Key() })
		if r, ok := latest[q.Period.Key()]; ok {
			return &CumulativeAnswer{Vector: answer.FromFloatMap(r.Cumulative), ReportsUsed: 1}, nil
		}
	}
	return nil, lastErr
}

// EmptyProvider always answers with zero vectors.
type EmptyProvider struct{}

func (EmptyProvider) Tier() Tier { return TierEmpty }

func (EmptyProvider) Cumulative(context.Context, CumulativeQuery) (*CumulativeAnswer, error) {
	return &CumulativeAnswer{}, nil
}

func (EmptyProvider) Matrix(context.Context, MatrixQuery) (*MatrixAnswer, error) {
	return &MatrixAnswer{Rows: []MatrixRow{}}, nil
}

// Result is a single-institution cumulative tagged with its tier and the
// exact period computed.
type Result struct {
	Period      fiscal.Period
	Window      []fiscal.Period
	District    string
	Institution string // display label
	Key         string // canonical key
	Vector      answer.Vector
	Tier        Tier
	Degraded    bool
	ReportsUsed int
}

// Matrix is a district roll-up tagged with its tier and the exact period.
type Matrix struct {
	Period        fiscal.Period
	Window        []fiscal.Period
	District      string
	Tier          Tier
	Degraded      bool
	Rows          []MatrixRow
	MonthTotal    answer.Vector
	DistrictTotal answer.Vector
}

// Resolver walks explicit, ordered provider lists; the first provider with an
// answer wins.
type Resolver struct {
	canon      *canon.Canonicalizer
	cumulative []CumulativeProvider
	matrix     []MatrixProvider
}

// NewResolver builds a resolver. EmptyProvider is appended to either chain
// when missing so every request ends with an answer.
func NewResolver(c *canon.Canonicalizer, cumulative []CumulativeProvider, matrix []MatrixProvider) *Resolver {
	if n := len(cumulative); n == 0 || cumulative[n-1].Tier() != TierEmpty {
		cumulative = append(cumulative, EmptyProvider{})
	}
	if n := len(matrix); n == 0 || matrix[n-1].Tier() != TierEmpty {
		matrix = append(matrix, EmptyProvider{})
	}
	return &Resolver{canon: c, cumulative: cumulative, matrix: matrix}
}

// Canonicalizer returns the name resolver in use.
func (r *Resolver) Canonicalizer() *canon.Canonicalizer { return r.canon }

// CumulativeFor returns the fiscal-year-to-date total of one institution
// through (month, year).
func (r *Resolver) CumulativeFor(ctx context.Context, district, institution, month, year string) (Result, error) {
	period, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return Result{}, err
	}
	window, err := fiscal.Window(period)
	if err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(district) == "" || canon.Normalize(institution) == "" {
		return Result{}, common.WithDetails(common.ErrRequiredField, "district and institution are required")
	}

	id := r.canon.Resolve(institution)
	q := CumulativeQuery{
		District:    district,
		DistrictKey: canon.Normalize(district),
		Identity:    id,
		Period:      period,
		Window:      window,
	}
	res := Result{
		Period:      period,
		Window:      window,
		District:    strings.TrimSpace(district),
		Institution: id.Label,
		Key:         id.Key,
	}

	log := logger.WithContext(ctx).WithFields(map[string]interface{}{
		"module":      "aggregator",
		"district":    q.DistrictKey,
		"institution": id.Key,
		"period":      period.Key(),
	})
	for _, p := range r.cumulative {
		ans, err := p.Cumulative(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			res.Degraded = true
			log.WithError(err).WithField("tier", p.Tier()).Warn("Cumulative tier failed, falling back")
			continue
		}
		if ans == nil {
			continue
		}
		res.Vector = ans.Vector
		res.ReportsUsed = ans.ReportsUsed
		res.Tier = p.Tier()
		break
	}
	if res.Tier != TierAuthoritative {
		log.WithFields(map[string]interface{}{"tier": res.Tier, "degraded": res.Degraded}).Info("Cumulative served from fallback tier")
	}
	return res, nil
}

// DistrictMatrix returns per-institution month and cumulative vectors for a
// district plus their elementwise totals.
func (r *Resolver) DistrictMatrix(ctx context.Context, district, month, year string) (Matrix, error) {
	period, err := fiscal.ParsePeriod(month, year)
	if err != nil {
		return Matrix{}, err
	}
	window, err := fiscal.Window(period)
	if err != nil {
		return Matrix{}, err
	}
	if strings.TrimSpace(district) == "" {
		return Matrix{}, common.WithDetails(common.ErrRequiredField, "district is required")
	}

	q := MatrixQuery{
		District:    district,
		DistrictKey: canon.Normalize(district),
		Period:      period,
		Window:      window,
	}
	m := Matrix{
		Period:   period,
		Window:   window,
		District: strings.TrimSpace(district),
		Rows:     []MatrixRow{},
	}

	log := logger.WithContext(ctx).WithFields(map[string]interface{}{
		"module":   "aggregator",
		"district": q.DistrictKey,
		"period":   period.Key(),
	})
	for _, p := range r.matrix {
		ans, err := p.Matrix(ctx, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Matrix{}, ctxErr
			}
			m.Degraded = true
			log.WithError(err).WithField("tier", p.Tier()).Warn("Matrix tier failed, falling back")
			continue
		}
		if ans == nil {
			continue
		}
		m.Rows = ans.Rows
		m.Degraded = m.Degraded || ans.Degraded
		m.Tier = p.Tier()
		break
	}
	m.MonthTotal, m.DistrictTotal = DistrictTotal(m.Rows)
	return m, nil
}
