package reportsvc

import (
	"context"
	"encoding/json"
	"regexp"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/cache"
	"optometry_report/internal/canon"
	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
	"optometry_report/internal/logger"
)

// MirrorStore serves the last-known report documents kept in Redis. It backs
// the local-fallback tier when MongoDB cannot answer.
type MirrorStore struct {
	cache *cache.ReportCache
}

// NewMirrorStore wraps c. A nil or disabled cache yields no reports.
func NewMirrorStore(c *cache.ReportCache) *MirrorStore {
	return &MirrorStore{cache: c}
}

// Remember mirrors reports, grouped by district. Reports without an id are
// skipped.
func (m *MirrorStore) Remember(ctx context.Context, reports []reportmodels.Report) error {
	if !m.cache.Enabled() || len(reports) == 0 {
		return nil
	}
	byDistrict := map[string]map[string][]byte{}
	for i := range reports {
		r := &reports[i]
		if r.ID.IsZero() {
			continue
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return err
		}
		dk := canon.Normalize(r.District)
		if byDistrict[dk] == nil {
			byDistrict[dk] = map[string][]byte{}
		}
		byDistrict[dk][r.ID.Hex()] = payload
	}
	for dk, entries := range byDistrict {
		if err := m.cache.PutMirror(ctx, dk, entries); err != nil {
			return err
		}
	}
	return nil
}

func (m *MirrorStore) FindReports(ctx context.Context, f ReportFilter) ([]reportmodels.Report, error) {
	if f.District == "" {
		return nil, common.WithDetails(common.ErrInvalidInput, "mirror lookups need a district")
	}
	entries, err := m.cache.Mirror(ctx, canon.Normalize(f.District))
	if err != nil {
		if cache.IsMiss(err) {
			return []reportmodels.Report{}, nil
		}
		return nil, common.WithDetails(common.ErrStoreUnavailable, err.Error())
	}

	match, err := mirrorMatcher(f)
	if err != nil {
		return nil, err
	}

	out := make([]reportmodels.Report, 0, len(entries))
	for id, payload := range entries {
		var r reportmodels.Report
		if err := json.Unmarshal(payload, &r); err != nil {
			logger.WithModule("mirror").WithError(err).WithField("report_id", id).Warn("Skipping undecodable mirrored report")
			continue
		}
		if match(&r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MirrorStore) FindReportByID(ctx context.Context, id string) (*reportmodels.Report, error) {
	payload, err := m.cache.MirrorEntry(ctx, id)
	if err != nil {
		if cache.IsMiss(err) {
			return nil, nil
		}
		return nil, common.WithDetails(common.ErrStoreUnavailable, err.Error())
	}
	var r reportmodels.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// mirrorMatcher applies f in memory with the same semantics as the Mongo query.
func mirrorMatcher(f ReportFilter) (func(*reportmodels.Report) bool, error) {
	districtKey := canon.Normalize(f.District)
	var institutions []*regexp.Regexp
	if len(f.InstitutionPatterns) > 0 {
		res, err := canon.Compile(f.InstitutionPatterns)
		if err != nil {
			return nil, err
		}
		institutions = res
	}
	var month *fiscal.Month
	if f.Month != "" {
		m, err := fiscal.ParseMonth(f.Month)
		if err != nil {
			return nil, err
		}
		month = &m
	}
	year := 0
	if f.Year != "" {
		y, err := fiscal.ParseYear(f.Year)
		if err != nil {
			return nil, err
		}
		year = y
	}

	return func(r *reportmodels.Report) bool {
		if canon.Normalize(r.District) != districtKey {
			return false
		}
		if institutions != nil || f.InstitutionKey != "" {
			hit := f.InstitutionKey != "" && r.InstitutionKey == f.InstitutionKey
			for _, re := range institutions {
				if re.MatchString(r.Institution) {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
		}
		if month != nil {
			m, err := fiscal.ParseMonth(r.Month)
			if err != nil || m != *month {
				return false
			}
		}
		if year != 0 && r.Year.Int() != year {
			return false
		}
		return true
	}, nil
}
