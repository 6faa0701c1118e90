// Package reportsvc holds the report store, the fiscal-year cumulative engine
// and the fallback resolver built on top of them.
package reportsvc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	reportmodels "optometry_report/internal/api/report/models"
	"optometry_report/internal/canon"
	"optometry_report/internal/common"
	"optometry_report/internal/fiscal"
)

// ReportFilter narrows a report query. Empty fields do not filter.
// InstitutionPatterns are anchored patterns applied case-insensitively; a
// report also matches when its stored institutionKey equals InstitutionKey.
type ReportFilter struct {
	District            string
	InstitutionPatterns []string
	InstitutionKey      string
	Month               string
	Year                string
}

// ReportStore is the read contract the engine consumes.
type ReportStore interface {
	FindReports(ctx context.Context, f ReportFilter) ([]reportmodels.Report, error)
	// FindReportByID returns nil, nil when the report does not exist.
	FindReportByID(ctx context.Context, id string) (*reportmodels.Report, error)
}

// ReportContent is the editable part of a report.
type ReportContent struct {
	Answers      map[string]interface{}
	EyeBank      []reportmodels.EyeBankRow
	VisionCenter []reportmodels.VisionCenterRow
}

// ReportRepository adds the write side used by ReportService and the
// snapshot worker.
type ReportRepository interface {
	ReportStore
	InsertReport(ctx context.Context, r *reportmodels.Report) error
	UpdateContent(ctx context.Context, id string, content ReportContent, at time.Time) (*reportmodels.Report, error)
	SetLocked(ctx context.Context, id string, locked bool) (*reportmodels.Report, error)
	SaveCumulative(ctx context.Context, id primitive.ObjectID, cumulative map[string]float64, at time.Time) error
	FindFiscalYear(ctx context.Context, startYear int) ([]reportmodels.Report, error)
}

// MongoReportStore is the authoritative store over the reports collection.
type MongoReportStore struct {
	coll *mongo.Collection
}

// NewMongoReportStore wraps coll.
func NewMongoReportStore(coll *mongo.Collection) *MongoReportStore {
	return &MongoReportStore{coll: coll}
}

// Collection returns the underlying collection.
func (s *MongoReportStore) Collection() *mongo.Collection { return s.coll }

// buildReportFilter translates f into a Mongo query. District matches
// case-insensitively and exactly; year matches both its string and numeric
// stored forms.
func buildReportFilter(f ReportFilter) (bson.M, error) {
	filter := bson.M{}
	if f.District != "" {
		filter["district"] = primitive.Regex{Pattern: canon.ExactPattern(f.District), Options: "i"}
	}
	byName := bson.M{"institution": bson.M{"$in": canon.ToRegexes(f.InstitutionPatterns)}}
	byKey := bson.M{"institutionKey": f.InstitutionKey}
	switch {
	case len(f.InstitutionPatterns) > 0 && f.InstitutionKey != "":
		filter["$or"] = bson.A{byName, byKey}
	case len(f.InstitutionPatterns) > 0:
		filter["institution"] = byName["institution"]
	case f.InstitutionKey != "":
		filter["institutionKey"] = f.InstitutionKey
	}
	if f.Month != "" {
		m, err := fiscal.ParseMonth(f.Month)
		if err != nil {
			return nil, err
		}
		filter["month"] = primitive.Regex{Pattern: canon.ExactPattern(m.String()), Options: "i"}
	}
	if f.Year != "" {
		y, err := fiscal.ParseYear(f.Year)
		if err != nil {
			return nil, err
		}
		filter["year"] = yearIn(y)
	}
	return filter, nil
}

// yearIn matches a year stored as string, int or double.
func yearIn(years ...int) bson.M {
	values := bson.A{}
	for _, y := range years {
		values = append(values, fmt.Sprintf("%d", y), int32(y), int64(y), float64(y))
	}
	return bson.M{"$in": values}
}

func (s *MongoReportStore) FindReports(ctx context.Context, f ReportFilter) ([]reportmodels.Report, error) {
	filter, err := buildReportFilter(f)
	if err != nil {
		return nil, err
	}
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var list []reportmodels.Report
	if err := cursor.All(ctx, &list); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	if list == nil {
		list = []reportmodels.Report{}
	}
	return list, nil
}

func (s *MongoReportStore) FindReportByID(ctx context.Context, id string) (*reportmodels.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.WithDetails(common.ErrInvalidFormat, "id must be a 24 character hex ObjectID")
	}
	var r reportmodels.Report
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&r); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, common.ConvertMongoError(err)
	}
	return &r, nil
}

// InsertReport inserts r. The report_slot_unique index turns a second report
// for the same slot into ErrDuplicateReport.
func (s *MongoReportStore) InsertReport(ctx context.Context, r *reportmodels.Report) error {
	res, err := s.coll.InsertOne(ctx, r)
	if err != nil {
		return common.ConvertMongoError(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		r.ID = oid
	}
	return nil
}

// UpdateContent replaces answers and tables of an unlocked report and locks it
// again. A locked report yields ErrReportLocked.
func (s *MongoReportStore) UpdateContent(ctx context.Context, id string, content ReportContent, at time.Time) (*reportmodels.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.WithDetails(common.ErrInvalidFormat, "id must be a 24 character hex ObjectID")
	}
	update := bson.M{"$set": bson.M{
		"answers":      content.Answers,
		"eyeBank":      content.EyeBank,
		"visionCenter": content.VisionCenter,
		"locked":       true,
		"updatedAt":    at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated reportmodels.Report
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid, "locked": bson.M{"$ne": true}}, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, common.ConvertMongoError(err)
	}

	existing, findErr := s.FindReportByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	if existing == nil {
		return nil, common.ErrNotFound
	}
	return nil, common.ErrReportLocked
}

// SetLocked opens or closes the edit gate of a report.
func (s *MongoReportStore) SetLocked(ctx context.Context, id string, locked bool) (*reportmodels.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.WithDetails(common.ErrInvalidFormat, "id must be a 24 character hex ObjectID")
	}
	update := bson.M{"$set": bson.M{"locked": locked}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated reportmodels.Report
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&updated); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return &updated, nil
}

// SaveCumulative writes a stored cumulative snapshot back to a report. It does
// not touch updatedAt so latest-wins selection is unaffected.
func (s *MongoReportStore) SaveCumulative(ctx context.Context, id primitive.ObjectID, cumulative map[string]float64, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"cumulative":           cumulative,
		"cumulativeComputedAt": at,
	}}
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return common.ConvertMongoError(err)
}

// FindFiscalYear returns identity and period fields of every report that may
// belong to the fiscal year starting in startYear.
func (s *MongoReportStore) FindFiscalYear(ctx context.Context, startYear int) ([]reportmodels.Report, error) {
	filter := bson.M{"year": yearIn(startYear, startYear+1)}
	opts := options.Find().SetProjection(bson.M{
		"district": 1, "institution": 1, "month": 1, "year": 1,
	})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	defer cursor.Close(ctx)

	var list []reportmodels.Report
	if err := cursor.All(ctx, &list); err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return list, nil
}
