package reportsvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	reportmodels "optometry_report/internal/api/report/models"
)

func TestMarkedEntry_SameInstantGetsDistinctStamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	done := int64(1)
	d := reportmodels.ReportDirtyPeriod{
		ID:              primitive.NewObjectID(),
		DistrictKey:     "kozhikode",
		InstitutionKey:  "chc narikkuni",
		FiscalStartYear: 2025,
		ProcessedAt:     &done,
	}

	first := markedEntry(d, now)
	second := markedEntry(d, now)

	assert.Equal(t, primitive.NilObjectID, first.ID)
	assert.Nil(t, first.ProcessedAt)
	assert.GreaterOrEqual(t, first.MarkedAt, now.UnixNano())
	assert.Greater(t, second.MarkedAt, first.MarkedAt)

	// A clock that steps back still yields a later stamp.
	third := markedEntry(d, now.Add(-time.Hour))
	assert.Greater(t, third.MarkedAt, second.MarkedAt)
}

func TestProcessedFilter_MatchesOnlyTheReadStamp(t *testing.T) {
	d := markedEntry(reportmodels.ReportDirtyPeriod{
		DistrictKey:     "kozhikode",
		InstitutionKey:  "chc narikkuni",
		FiscalStartYear: 2025,
	}, time.Now())

	f := processedFilter(d)
	assert.Equal(t, bson.M{
		"districtKey":     "kozhikode",
		"institutionKey":  "chc narikkuni",
		"fiscalStartYear": 2025,
		"markedAt":        d.MarkedAt,
	}, f)

	remarked := markedEntry(d, time.Now())
	require.NotEqual(t, d.MarkedAt, remarked.MarkedAt)
	assert.NotEqual(t, f["markedAt"], remarked.MarkedAt)
}
