package database

import (
	"context"

	"optometry_report/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportSlotIndex is the unique index that makes an insert for an
// (institution, month, year) slot conditional.
const ReportSlotIndex = "report_slot_unique"

// reportSlotIndexModel only covers documents carrying an institutionKey, so
// legacy rows written before canonical keys existed never collide.
func reportSlotIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{
			{Key: "districtKey", Value: 1},
			{Key: "institutionKey", Value: 1},
			{Key: "month", Value: 1},
			{Key: "year", Value: 1},
		},
		Options: options.Index().
			SetName(ReportSlotIndex).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"institutionKey": bson.M{"$exists": true}}),
	}
}

// CreateReportAdditionalIndexes adds the indexes that struct tags cannot
// express. Call after CreateIndexes on the report collections.
func CreateReportAdditionalIndexes(ctx context.Context, db *mongo.Database) error {
	reports := db.Collection(global.MongoDB_ColNames.Reports)
	if _, err := reports.Indexes().CreateOne(ctx, reportSlotIndexModel()); err != nil && !isIndexExistsError(err) {
		return err
	}

	// district + year lookups by the matrix and the snapshot worker
	if _, err := reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "district", Value: 1},
			{Key: "year", Value: 1},
			{Key: "month", Value: 1},
		},
		Options: options.Index().SetName("report_district_period"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	dirty := db.Collection(global.MongoDB_ColNames.ReportDirtyPeriods)
	if _, err := dirty.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "districtKey", Value: 1},
			{Key: "institutionKey", Value: 1},
			{Key: "fiscalStartYear", Value: 1},
		},
		Options: options.Index().SetName("report_dirty_slot_unique").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	return nil
}
