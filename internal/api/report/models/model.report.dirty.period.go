package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportDirtyPeriod marks an institution's fiscal year whose stored snapshots
// must be recomputed (report_dirty_periods).
type ReportDirtyPeriod struct {
	ID              primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	DistrictKey     string             `json:"districtKey" bson:"districtKey"`
	InstitutionKey  string             `json:"institutionKey" bson:"institutionKey"`
	District        string             `json:"district" bson:"district"`       // Display name used to query reports
	Institution     string             `json:"institution" bson:"institution"` // Display name used to query reports
	FiscalStartYear int                `json:"fiscalStartYear" bson:"fiscalStartYear"`
	MarkedAt        int64              `json:"markedAt" bson:"markedAt" index:"compound:dirty_worker_marked"`                                         // UnixNano, worker sort key and processed guard
	ProcessedAt     *int64             `json:"processedAt,omitempty" bson:"processedAt,omitempty" index:"single:1,compound:dirty_worker_marked"` // nil = pending
}
