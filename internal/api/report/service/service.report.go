package reportsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/api/events"
	"optometry_report/internal/cache"
	"optometry_report/internal/canon"
	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/global"
	"optometry_report/internal/logger"
)

// ReportService is the entry point for report reads, writes and the
// cumulative engine.
type ReportService struct {
	repo     ReportRepository
	dirty    DirtyStore
	canon    *canon.Canonicalizer
	cache    *cache.ReportCache
	mirror   *MirrorStore
	resolver *Resolver
	collName string
	now      func() time.Time
}

// Deps wires a ReportService explicitly.
type Deps struct {
	Repo        ReportRepository
	Dirty       DirtyStore
	Canon       *canon.Canonicalizer
	Cache       *cache.ReportCache // nil disables the Redis tiers
	Concurrency int
	// CollectionName tags data-change events; defaults to "reports".
	CollectionName string
}

// New builds the service and its provider chains:
// cumulative authoritative → local-fallback → stored-snapshot → empty,
// matrix authoritative → local-fallback → empty.
func New(d Deps) *ReportService {
	mirror := NewMirrorStore(d.Cache)
	primary := NewStoreProvider(TierAuthoritative, d.Repo, d.Canon, d.Concurrency).WithWriteThrough(d.Cache, mirror)
	local := NewStoreProvider(TierLocalFallback, mirror, d.Canon, d.Concurrency)

	cumulative := []CumulativeProvider{primary}
	matrix := []MatrixProvider{primary}
	snapshotStores := []ReportStore{d.Repo}
	if d.Cache.Enabled() {
		cumulative = append(cumulative, local)
		matrix = append(matrix, local)
		snapshotStores = append(snapshotStores, mirror)
	}
	cumulative = append(cumulative, NewSnapshotProvider(d.Cache, d.Canon, snapshotStores...), EmptyProvider{})
	matrix = append(matrix, EmptyProvider{})

	name := d.CollectionName
	if name == "" {
		name = "reports"
	}
	return &ReportService{
		repo:     d.Repo,
		dirty:    d.Dirty,
		canon:    d.Canon,
		cache:    d.Cache,
		mirror:   mirror,
		resolver: NewResolver(d.Canon, cumulative, matrix),
		collName: name,
		now:      time.Now,
	}
}

// NewReportService builds the service from the registered collections, the
// Redis client and the loaded alias table.
func NewReportService() (*ReportService, error) {
	reportColl, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.Reports)
	if !ok {
		return nil, fmt.Errorf("collection %s not found: %w", global.MongoDB_ColNames.Reports, common.ErrNotFound)
	}
	dirtyColl, ok := global.RegistryCollections.Get(global.MongoDB_ColNames.ReportDirtyPeriods)
	if !ok {
		return nil, fmt.Errorf("collection %s not found: %w", global.MongoDB_ColNames.ReportDirtyPeriods, common.ErrNotFound)
	}
	if global.Canonicalizer == nil {
		return nil, fmt.Errorf("alias table not loaded: %w", common.ErrNotFound)
	}

	var rc *cache.ReportCache
	concurrency := 8
	if cfg := global.MongoDB_ServerConfig; cfg != nil {
		concurrency = cfg.MatrixConcurrency
		if global.Redis_Client != nil {
			rc = cache.NewReportCache(cache.NewRedisKVStore(global.Redis_Client), cfg.MirrorTTL(), cfg.SnapshotTTL())
		}
	}

	return New(Deps{
		Repo:           NewMongoReportStore(reportColl),
		Dirty:          NewMongoDirtyStore(dirtyColl),
		Canon:          global.Canonicalizer,
		Cache:          rc,
		Concurrency:    concurrency,
		CollectionName: global.MongoDB_ColNames.Reports,
	}), nil
}

// Resolver exposes the cumulative engine.
func (s *ReportService) Resolver() *Resolver { return s.resolver }

// Cache returns the Redis cache, nil when disabled.
func (s *ReportService) Cache() *cache.ReportCache { return s.cache }

// CumulativeFor delegates to the resolver.
func (s *ReportService) CumulativeFor(ctx context.Context, district, institution, month, year string) (Result, error) {
	return s.resolver.CumulativeFor(ctx, district, institution, month, year)
}

// DistrictMatrix delegates to the resolver.
func (s *ReportService) DistrictMatrix(ctx context.Context, district, month, year string) (Matrix, error) {
	return s.resolver.DistrictMatrix(ctx, district, month, year)
}

// Canonical resolves an institution name.
func (s *ReportService) Canonical(name string) canon.Identity {
	return s.canon.Resolve(name)
}

// FindReports lists reports by district, institution name (all aliases),
// month and year. Every argument is optional.
func (s *ReportService) FindReports(ctx context.Context, district, institution, month, year string) ([]reportmodels.Report, error) {
	f := ReportFilter{District: district, Month: month, Year: year}
	if canon.Normalize(institution) == "" {
		return s.repo.FindReports(ctx, f)
	}
	f.InstitutionPatterns = s.canon.MatchPatterns(institution)
	f.InstitutionKey = s.canon.Key(institution)
	reports, err := s.repo.FindReports(ctx, f)
	if err != nil {
		return nil, err
	}
	return reportsOf(s.canon, f.InstitutionKey, reports), nil
}

// FindReportByID returns ErrNotFound for a missing report.
func (s *ReportService) FindReportByID(ctx context.Context, id string) (*reportmodels.Report, error) {
	r, err := s.repo.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, common.ErrNotFound
	}
	return r, nil
}

// NewReport is the input of InsertReport.
type NewReport struct {
	District     string
	Institution  string
	Month        string
	Year         string
	Answers      map[string]interface{}
	EyeBank      []reportmodels.EyeBankRow
	VisionCenter []reportmodels.VisionCenterRow
}

// InsertReport stores the first submission for a slot. The report starts
// locked. A second report for the same slot fails with ErrDuplicateReport.
func (s *ReportService) InsertReport(ctx context.Context, in NewReport) (*reportmodels.Report, error) {
	period, err := fiscal.ParsePeriod(in.Month, in.Year)
	if err != nil {
		return nil, err
	}
	district := strings.TrimSpace(in.District)
	if district == "" || canon.Normalize(in.Institution) == "" {
		return nil, common.WithDetails(common.ErrRequiredField, "district and institution are required")
	}
	content, err := normalizeContent(ReportContent{Answers: in.Answers, EyeBank: in.EyeBank, VisionCenter: in.VisionCenter})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	r := &reportmodels.Report{
		District:       district,
		Institution:    s.canon.Label(in.Institution),
		DistrictKey:    canon.Normalize(district),
		InstitutionKey: s.canon.Key(in.Institution),
		Month:          period.Month.String(),
		Year:           reportmodels.YearOf(period.Year),
		Answers:        content.Answers,
		EyeBank:        content.EyeBank,
		VisionCenter:   content.VisionCenter,
		Locked:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertReport(ctx, r); err != nil {
		return nil, err
	}
	s.emit(ctx, events.OpInsert, r)
	return r, nil
}

// UpdateReport replaces the content of an unlocked report and locks it again.
func (s *ReportService) UpdateReport(ctx context.Context, id string, content ReportContent) (*reportmodels.Report, error) {
	normalized, err := normalizeContent(content)
	if err != nil {
		return nil, err
	}
	r, err := s.repo.UpdateContent(ctx, id, normalized, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.OpUpdate, r)
	return r, nil
}

// SetLocked opens (false) or closes (true) the edit gate.
func (s *ReportService) SetLocked(ctx context.Context, id string, locked bool) (*reportmodels.Report, error) {
	r, err := s.repo.SetLocked(ctx, id, locked)
	if err != nil {
		return nil, err
	}
	op := events.OpUnlock
	if locked {
		op = events.OpLock
	}
	s.emit(ctx, op, r)
	return r, nil
}

func (s *ReportService) emit(ctx context.Context, op string, r *reportmodels.Report) {
	logger.WithContext(ctx).WithFields(map[string]interface{}{
		"module":    "report",
		"operation": op,
		"report_id": r.ID.Hex(),
	}).Debug("Report changed")
	events.EmitDataChanged(ctx, events.DataChangeEvent{
		CollectionName: s.collName,
		Operation:      op,
		Document:       r,
	})
}
